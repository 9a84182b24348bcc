package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Encoding names the sample encoding of host audio frames
type Encoding string

const (
	EncodingLinear16 Encoding = "linear16" // 16-bit signed little-endian PCM
	EncodingMulaw    Encoding = "mulaw"    // G.711 PCMU
)

// ErrOddLength is returned for linear16 data that does not hold whole samples
var ErrOddLength = errors.New("PCM data length must be even (16-bit samples)")

// Format describes mono audio sent by the host
type Format struct {
	Encoding   Encoding
	SampleRate int
}

// ParseFormat validates an encoding name and sample rate
func ParseFormat(encoding string, sampleRate int) (Format, error) {
	enc := Encoding(strings.ToLower(strings.TrimSpace(encoding)))
	switch enc {
	case EncodingLinear16, EncodingMulaw:
	case "":
		enc = EncodingLinear16
	default:
		return Format{}, fmt.Errorf("unsupported audio encoding %q", encoding)
	}
	if sampleRate <= 0 {
		return Format{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return Format{Encoding: enc, SampleRate: sampleRate}, nil
}

// BytesToSamples decodes 16-bit little-endian PCM
func BytesToSamples(pcm []byte) ([]int16, error) {
	if len(pcm)%2 != 0 {
		return nil, ErrOddLength
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples, nil
}

// SamplesToBytes encodes samples as 16-bit little-endian PCM
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// DecodeMulaw expands G.711 PCMU bytes to linear samples
func DecodeMulaw(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = mulawToLinear(b)
	}
	return samples
}

// ToLinear16 converts a host frame in format f to linear16 samples at
// outputRate.
func ToLinear16(data []byte, f Format, outputRate int) ([]int16, error) {
	var samples []int16
	switch f.Encoding {
	case EncodingMulaw:
		samples = DecodeMulaw(data)
	case EncodingLinear16, "":
		var err error
		if samples, err = BytesToSamples(data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported audio encoding %q", f.Encoding)
	}
	return Resample(samples, f.SampleRate, outputRate), nil
}

// Resample performs linear interpolation resampling
func Resample(samples []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	output := make([]int16, int(float64(len(samples))*ratio))

	for i := range output {
		srcPos := float64(i) / ratio
		idx0 := int(srcPos)
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}
		fraction := srcPos - float64(idx0)
		output[i] = int16(float64(samples[idx0])*(1.0-fraction) + float64(samples[idx1])*fraction)
	}

	return output
}

// mulawToLinear converts an 8-bit μ-law sample to 16-bit linear PCM
func mulawToLinear(mulawByte byte) int16 {
	// μ-law bytes are stored inverted
	mulawByte = ^mulawByte

	sign := mulawByte & 0x80
	segment := int32((mulawByte >> 4) & 0x07)
	mantissa := int32(mulawByte & 0x0F)

	magnitude := (mantissa << (segment + 1)) + (int32(33) << segment) - 33
	if sign != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// CalculateRMS calculates the root mean square of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
