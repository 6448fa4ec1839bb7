package errors

import "testing"

func TestDeviceError_WrapsSentinel(t *testing.T) {
	err := NewDeviceError("airspy:0", ErrUnknownDevice)

	if !Is(err, ErrUnknownDevice) {
		t.Error("DeviceError should match its wrapped sentinel")
	}
	if got, want := err.Error(), "unknown receiver: airspy:0"; got != want {
		t.Errorf("Error(): got %q, want %q", got, want)
	}

	var devErr *DeviceError
	if !As(err, &devErr) {
		t.Fatal("As should extract *DeviceError")
	}
	if devErr.Device != "airspy:0" {
		t.Errorf("Device: got %q", devErr.Device)
	}
}

func TestDeviceError_EmptyDevice(t *testing.T) {
	err := NewDeviceError("", ErrDeviceAbsent)
	if got, want := err.Error(), "no receiver found"; got != want {
		t.Errorf("Error(): got %q, want %q", got, want)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"device absent", ErrDeviceAbsent, true},
		{"unknown device", NewDeviceError("hydrasdr:0", ErrUnknownDevice), true},
		{"decoder unavailable", ErrDecoderUnavailable, true},
		{"usage", ErrUsage, false},
		{"arbitrary", New("transient"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v): got %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
