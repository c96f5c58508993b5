// Package artifact contains temporary storage backends for capture artifacts.
//
// A capture artifact is the transient file that bridges a host export (which
// writes to storage) and the capture service (which reads bytes back). Its
// lifecycle is create → write → read → delete inside one capture. Stores in
// this package satisfy capture.TempStorage and can be swapped without touching
// calling code: TempDirStore keeps artifacts on disk for hosts that need a real
// path, InMemoryStore keeps them in process memory for tests and hosts that
// encode in-process.
package artifact
