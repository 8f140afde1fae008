package portaudio

import (
	"testing"

	"github.com/petems/voicegpt/internal/sample"
)

type recordingSink struct {
	i8  int
	i16 int
	i32 int
	f32 int
}

func (r *recordingSink) WriteInt8(in []int8)       { r.i8 += len(in) }
func (r *recordingSink) WriteInt16(in []int16)     { r.i16 += len(in) }
func (r *recordingSink) WriteInt32(in []int32)     { r.i32 += len(in) }
func (r *recordingSink) WriteFloat32(in []float32) { r.f32 += len(in) }

func TestCallbackForRoutesBuffers(t *testing.T) {
	sink := &recordingSink{}

	for _, kind := range []sample.Kind{sample.Int8, sample.Int16, sample.Int32, sample.Float32} {
		cb, err := callbackFor(kind, sink)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", kind, err)
		}
		switch f := cb.(type) {
		case func([]int8):
			f(make([]int8, 1))
		case func([]int16):
			f(make([]int16, 2))
		case func([]int32):
			f(make([]int32, 3))
		case func([]float32):
			f(make([]float32, 4))
		default:
			t.Fatalf("%v: unexpected callback type %T", kind, cb)
		}
	}

	if sink.i8 != 1 || sink.i16 != 2 || sink.i32 != 3 || sink.f32 != 4 {
		t.Errorf("buffers routed to the wrong writer: %+v", sink)
	}
}

func TestCallbackForUnsupported(t *testing.T) {
	if _, err := callbackFor(0, discard{}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestClampChannels(t *testing.T) {
	tests := []struct {
		available, max, expected int
	}{
		{1, 2, 1},
		{2, 2, 2},
		{8, 2, 2},
		{8, 0, 8},
		{0, 2, 0},
		{-1, 2, 0},
	}

	for _, tt := range tests {
		if got := clampChannels(tt.available, tt.max); got != tt.expected {
			t.Errorf("clampChannels(%d, %d): expected %d, got %d", tt.available, tt.max, tt.expected, got)
		}
	}
}
