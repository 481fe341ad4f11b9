// Package subgraph implements the declarative composition layer: a
// Builder collects variable declarations and an ordered step log of
// "add task" and "set variable" records, then freezes them into an
// immutable Graph that the while-loop compiler replays.
//
// Declaration is lazy and unchecked: values flowing between steps are
// symbolic references, and referencing a producer that does not exist is
// surfaced at compile time, not at declaration time.
package subgraph
