// Package jsonvalue implements the owned JSON tree exchanged with scripts.
//
// A Value is a tagged union of Null, Boolean, Number, String, Array and
// Object. Values are plain trees: building a container from children copies
// them in, so no two containers ever share a node and cycles cannot form.
//
// Kind codes are host-visible and match the node type numbering scripts
// already depend on:
//
//	Number=0 Boolean=1 String=2 Object=3 Array=4 Null=5
//
// Numbers remember whether they were built or parsed as integers, so
// integer accessors can refuse fractional input, while Equal compares
// numbers by value.
package jsonvalue
