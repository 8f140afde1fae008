package wavfile

// withMaxDataBytes lowers the data chunk limit so tests can reach it.
func withMaxDataBytes(n int64) Option {
	return func(e *Encoder) {
		e.maxData = n
	}
}
