// Package ash implements the content-addressed core of a version-control
// system: an object database, a working-copy index, a reference namespace,
// a revision resolver, a tree-diff/migration engine, and a merge-base
// algorithm. It wires those pieces into the consumer-facing contracts a
// command-line layer drives; it does not parse arguments, render output,
// or talk to a network.
package ash
