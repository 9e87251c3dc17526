// Package remote drives a browser over a WebSocket from a server-side
// engine.
//
// A Host implements host.Host by recording every mutation as a
// protocol.Mutation and keeping a mirror of the client's tree in a
// host.Memory. Each commit the engine reports becomes one protocol.Batch,
// split into frames as needed. Client events name a node by its wire ID and
// are dispatched to the listener bound on the mirror.
//
// A Server gives every connection its own Session, with its own engine
// running on its own sched.Loop:
//
//	srv := remote.NewServer(app, remote.DefaultServerConfig(),
//	    remote.WithServerLogger(logger),
//	    remote.WithSnapshotStore(store),
//	)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The bundled client script (served on /client.js) applies batches once
// their final frame arrives and answers heartbeats.
package remote
