// Package wav converts raw 16-bit mono PCM narration audio into a playable
// RIFF/WAVE container and measures its duration. The header layout is fixed:
// downstream players and the export muxer both depend on the exact bytes.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const (
	headerSize    = 44
	numChannels   = 1
	bitsPerSample = 16
	blockAlign    = numChannels * bitsPerSample / 8
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrOddPCMLength      = errors.New("pcm byte length must be even for 16-bit samples")
)

// Encode wraps raw little-endian 16-bit mono PCM bytes in a RIFF/WAVE
// header. The result is deterministic: same input, same bytes.
func Encode(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	buf := make([]byte, headerSize+len(pcm))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM format
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[headerSize:], pcm)

	return buf, nil
}

// DecodeSamples interprets raw bytes as 16-bit signed little-endian mono
// samples normalized to [-1, 1).
func DecodeSamples(pcm []byte) ([]float64, error) {
	if len(pcm)%2 != 0 {
		return nil, ErrOddPCMLength
	}

	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float64(s) / 32768.0
	}
	return samples, nil
}

// Duration returns the playback length of raw 16-bit mono PCM at the
// given sample rate. This is the authoritative duration used to seed a
// slide before its narration is ever played.
func Duration(pcm []byte, sampleRate int) (time.Duration, error) {
	if sampleRate <= 0 {
		return 0, ErrInvalidSampleRate
	}
	if len(pcm)%2 != 0 {
		return 0, ErrOddPCMLength
	}

	samples := len(pcm) / 2
	seconds := float64(samples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}

// Info describes an already-containerized WAV stream.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Probe reads the header of a WAV stream supplied by the user (imported
// narration files) and reports its format and duration.
func Probe(r io.ReadSeeker) (*Info, error) {
	dec := gowav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("cannot read wav header: %w", err)
	}
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}

	d, err := dec.Duration()
	if err != nil {
		return nil, fmt.Errorf("cannot compute wav duration: %w", err)
	}

	return &Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   d,
	}, nil
}

// Decode reads a 16-bit mono WAV stream back into raw little-endian
// PCM bytes plus its header info. Inverse of Encode, but tolerant of
// containers written by other tools.
func Decode(r io.ReadSeeker) ([]byte, *Info, error) {
	dec := gowav.NewDecoder(r)
	var buf *audio.IntBuffer
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot decode wav data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels != numChannels {
		return nil, nil, errors.New("narration audio must be mono")
	}
	if buf.SourceBitDepth != bitsPerSample {
		return nil, nil, fmt.Errorf("narration audio must be 16-bit, got %d", buf.SourceBitDepth)
	}

	frames := buf.NumFrames()
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(buf.Data[i])))
	}

	d, err := Duration(pcm, buf.Format.SampleRate)
	if err != nil {
		return nil, nil, err
	}
	return pcm, &Info{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   buf.SourceBitDepth,
		Duration:   d,
	}, nil
}
