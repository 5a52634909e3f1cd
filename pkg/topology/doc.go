// Package topology describes the containers a doco suite runs for every test.
//
// A Topology is one Server (the application under test) plus an ordered list
// of Services (databases, caches, anything the application talks to). Values
// are assembled with builders and are immutable once built, so a single
// Topology can be shared by every test in a run:
//
//	db, err := topology.NewService().
//		Image("postgres").
//		Tag("14").
//		Port(5432).
//		Env("POSTGRES_PASSWORD", "pw").
//		WaitFor(topology.LogLine("ready to accept connections")).
//		Build()
//
//	app, err := topology.NewServer().
//		Image("app").
//		Tag("v1").
//		Port(3000).
//		WaitFor(topology.LogLine("listening")).
//		Build()
//
//	topo, err := topology.New().Server(app).Service(db).Build()
//
// Services are reachable from the server under their image name, so the
// application above can connect to host "postgres".
//
// Topologies can also be read from YAML with Load, which renders the file as a
// template (Sprig functions, .Env from the process and a sibling .env file)
// before decoding it.
package topology
