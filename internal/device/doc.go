// Package device models an accelerator for the device engine.
//
// A Host owns a fixed amount of device memory. Buffers are allocated
// against that budget and filled or drained only through explicit copies,
// so a kernel never touches host slices directly:
//
//	h := device.NewHost(device.Config{MemoryBytes: 64 << 20})
//	buf, err := device.Alloc[float32](h, len(pixels))
//	if err != nil {
//	    return err // device.ErrOutOfMemory
//	}
//	defer buf.Free()
//	_ = device.CopyToDevice(buf, pixels)
//
//	err = h.Launch(ctx, device.Grid{Blocks: 64}, func(ctx context.Context, b device.Block) error {
//	    data := buf.Data()
//	    ...
//	    return nil
//	})
//
// Launch runs one goroutine per block, bounded by the host concurrency, and
// returns after every block finished or the first block failed.
package device
