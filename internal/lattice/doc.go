// Package lattice is the per-node deployment contract of the lattice-Boltzmann
// fabric simulation.
//
// Every grid cell runs on its own core and exchanges state with its eight
// neighbours. A Cell knows its position, initial velocity and neighbour
// wiring; once placement and routing are final it writes the boot image its
// firmware reads, and after a run it decodes what the firmware recorded.
//
// Image regions, in write order of reservation:
//
//	System        firmware timing configuration
//	Transmissions presence flag, own outgoing key
//	Position      x, y
//	NeighbourKeys 8 keys in N, W, S, E, NW, SW, SE, NE order, then the mask
//	Velocity      u_x, u_y as float32
//	VertexIndex   grid index, startup jitter
//	Results       recording header, then one float32 per timestep
package lattice
