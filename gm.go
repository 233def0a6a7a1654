// Package gm is an embeddable scripting-language runtime: a stack-based
// bytecode VM with its own tagged-value model, a garbage-collected
// object heap, cooperatively scheduled script threads, a native binding
// surface, a serializable compiled-library format (gml0), and a remote
// debug protocol.
//
// A minimal embedding looks like:
//
//	m := gm.NewMachine(gm.DefaultConfig())
//	m.RegisterArrayLib()
//	root, err := m.LoadLibrary(gmlBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//	m.CreateThread(root, nil) // the root function binds the library's globals
//	m.Tick(0)
//	cb, _ := m.BeginCallGlobal("add") // a function the library declares
//	result, _, err := cb.AddParamInt(3).AddParamInt(4).End(false)
package gm
