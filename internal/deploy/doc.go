// Package deploy turns a deployment file into one boot image per cell and
// reads the cells' recordings back after a run.
//
// Build wires the cells into a machine graph, places them one per core and
// allocates their routing keys. Run then writes each cell's image in graph
// order, so the jitter stream and therefore every image is reproducible for a
// given seed. Retrieve drains recordings concurrently.
package deploy
