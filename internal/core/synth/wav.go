package synth

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

var ErrEmptyBuffer = errors.New("buffer has no sample rate")

const wavHeaderSize = 44

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WAVSize is the encoded size in bytes of a buffer with the given frame count.
func WAVSize(frames int) int {
	return wavHeaderSize + frames*2
}

// EncodeWAV writes b as a 16-bit mono PCM WAV file.
func EncodeWAV(w io.Writer, b Buffer) error {
	if err := WriteWAVHeader(w, b.SampleRate, len(b.Samples)); err != nil {
		return err
	}
	return WritePCM16(w, b)
}

// WriteWAVHeader writes the header for a stream of frames samples that will
// follow in one or more WritePCM16 calls.
func WriteWAVHeader(w io.Writer, sampleRate, frames int) error {
	if sampleRate <= 0 {
		return ErrEmptyBuffer
	}

	dataSize := uint32(frames * 2)
	h := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	return binary.Write(w, binary.LittleEndian, h)
}

func WritePCM16(w io.Writer, b Buffer) error {
	pcm := make([]int16, len(b.Samples))
	for i, s := range b.Samples {
		pcm[i] = int16(math.Round(float64(clamp(float64(s))) * math.MaxInt16))
	}
	return binary.Write(w, binary.LittleEndian, pcm)
}
