/*
Package ir implements the netlist intermediate representation that the
rest of this module operates on: wires, cells, modules, and the design
(a named collection of modules) they live in.

The package plays the role of a netlist IR adapter: a thin capability
layer over a module/cell/wire/signal model, exposing read/write access
to cells, ports, attributes and connections. It does not itself know
how to parse a hardware description language or perform generic
synthesis; those are the job of the surrounding framework (see the
Pipeline type). It only gives the rest of this module a stable,
addressable graph to transform.

Wires and cells are identified by small dense integers (WireID, CellID)
allocated in order from an arena held by each Module, rather than by
pointer identity, so that serialization and bug-corpus naming can use
stable, comparable handles.
*/
package ir
