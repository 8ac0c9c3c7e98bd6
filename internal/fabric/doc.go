// Package fabric models the toolchain services a deployed vertex talks to:
// the machine graph, routing-key allocation, placement, and the capability
// interfaces a vertex implements to be sized, imaged and read back.
//
// The types here are in-process renditions of those services. They hold no
// knowledge of what a vertex computes.
package fabric
