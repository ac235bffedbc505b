// Package serialization reads and writes .born files: named tensors behind
// a JSON header.
//
// A v2 file starts with a 64-byte preamble, little endian throughout:
//
//	offset  size  field
//	0x00    4     "BORN"
//	0x04    4     format version
//	0x08    4     flags (FlagHas*)
//	0x0C    4     zero
//	0x10    8     JSON header length
//	0x18    8     data section length
//	0x20    32    SHA-256 of the data section
//
// The JSON header follows, zero padded to a multiple of 64 bytes, and then
// the data section. Each header entry gives a tensor's dtype, shape, offset
// and size within the data section, plus requires_grad for parameters.
// Entries are written in name order, so equal state produces equal bytes.
// Version 1 files, with a 20-byte preamble and no checksum, can still be
// read.
//
//	w, err := serialization.NewBornWriter("model.born")
//	...
//	err = w.WriteStateDict(model.StateDict(), nn.GradFlagsOf(model), serialization.Header{ModelType: "MLP"})
//
//	r, err := serialization.NewBornReader("model.born")
//	...
//	state, err := r.ReadStateDict(backend)
package serialization
