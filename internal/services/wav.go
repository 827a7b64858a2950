package services

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Narration audio is PCM WAV end to end: what the speech backend returns,
// what the silence fallback writes, and what duration measurement reads.
// Keeping one container avoids a probe dependency in offline runs.

const (
	silenceSampleRate = 24000
	silenceChannels   = 1
	silenceBitDepth   = 16
)

// writeSilenceWAV writes a PCM silence file of the given duration. Output
// is byte-deterministic for a fixed duration.
func writeSilenceWAV(path string, seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("silence duration must be >= 0")
	}
	frames := int(seconds * float64(silenceSampleRate))
	dataLen := frames * silenceChannels * silenceBitDepth / 8

	buf := make([]byte, 44+dataLen)
	byteRate := silenceSampleRate * silenceChannels * silenceBitDepth / 8
	blockAlign := silenceChannels * silenceBitDepth / 8

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(silenceChannels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(silenceSampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(silenceBitDepth))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	return os.WriteFile(path, buf, 0o644)
}

// readWAVDurationSeconds measures a PCM WAV file by walking its RIFF
// chunks: duration = data bytes / byte rate.
func readWAVDurationSeconds(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read wav: %w", err)
	}
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return 0, fmt.Errorf("%s is not a RIFF/WAVE file", path)
	}

	var byteRate uint32
	var dataLen uint32
	haveFmt, haveData := false, false

	offset := 12
	for offset+8 <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkLen := binary.LittleEndian.Uint32(raw[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(raw) {
				return 0, fmt.Errorf("%s has truncated fmt chunk", path)
			}
			byteRate = binary.LittleEndian.Uint32(raw[body+8 : body+12])
			haveFmt = true
		case "data":
			dataLen = chunkLen
			haveData = true
		}
		// Chunks are word-aligned.
		offset = body + int(chunkLen)
		if chunkLen%2 == 1 {
			offset++
		}
	}

	if !haveFmt || !haveData {
		return 0, fmt.Errorf("%s is missing fmt/data chunks", path)
	}
	if byteRate == 0 {
		return 0, fmt.Errorf("%s has zero byte rate", path)
	}
	return float64(dataLen) / float64(byteRate), nil
}
