package server

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func newRoomCode() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAA"
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf)
}

func newSocketID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "socket-0"
	}
	const hex = "0123456789abcdef"
	out := make([]byte, 32)
	for i, b := range buf {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out)
}

func uintsFromJSON(raw datatypes.JSON) []uint {
	if len(raw) == 0 {
		return nil
	}
	var values []uint
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

func stringsFromJSON(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}

func toJSON(value any) datatypes.JSON {
	data, err := json.Marshal(value)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

func containsUint(values []uint, target uint) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}

func ptr[T any](v T) *T {
	return &v
}
