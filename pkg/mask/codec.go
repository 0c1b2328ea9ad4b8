package mask

import (
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Sentinel tokens carried by hidden inputs. They must round-trip byte for
// byte: the browser runtime writes MaskInt/MaskFloat prefixes itself.
const (
	MaskNull  = "{~0~}"
	MaskList  = "{~1~}"
	MaskTrue  = "{~2~}"
	MaskFalse = "{~3~}"
	MaskInt   = "{~4~}"
	MaskFloat = "{~5~}"

	// KeyToken prefixes a base64 encoded dynamic object key inside a single
	// bracket segment.
	KeyToken = "{{encode_key}}"
	// LastKeyToken is replaced client side with the next repeatable group index.
	LastKeyToken = "{{LAST_KEY}}"
)

// ErrUnmaskable is returned when a non-empty list or map is handed to Encode.
var ErrUnmaskable = errors.New("mask: only scalars and empty containers can be masked")

// Encode converts a scalar (or empty container) into its transport string.
// Strings pass through untouched.
func Encode(v Value) (string, error) {
	switch v.kind {
	case KindNull:
		return MaskNull, nil
	case KindBool:
		if v.b {
			return MaskTrue, nil
		}
		return MaskFalse, nil
	case KindInt:
		return MaskInt + strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		return MaskFloat + formatFloat(v.f), nil
	case KindString:
		return v.s, nil
	case KindList, KindMap:
		if v.Len() == 0 {
			return MaskList, nil
		}
		return "", ErrUnmaskable
	default:
		return "", ErrUnmaskable
	}
}

// MustEncode mirrors Encode but panics on composite input.
func MustEncode(v Value) string {
	out, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return out
}

// Decode recovers the typed value from a transport string. Int and float
// tokens with an empty payload decode to Null: that is what an untouched empty
// number input submits.
func Decode(s string) Value {
	switch s {
	case MaskNull:
		return Null()
	case MaskList:
		return List()
	case MaskTrue:
		return Bool(true)
	case MaskFalse:
		return Bool(false)
	}

	if payload, ok := strings.CutPrefix(s, MaskInt); ok {
		payload = strings.TrimSpace(payload)
		if payload == "" {
			return Null()
		}
		if i, err := strconv.ParseInt(payload, 10, 64); err == nil {
			return Int(i)
		}
		if f, err := strconv.ParseFloat(payload, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return truncateInt(f, s)
		}
		return String(s)
	}

	if payload, ok := strings.CutPrefix(s, MaskFloat); ok {
		payload = strings.TrimSpace(payload)
		if payload == "" {
			return Null()
		}
		if f, err := strconv.ParseFloat(payload, 64); err == nil {
			return Float(f)
		}
		return String(s)
	}

	return String(s)
}

// truncateInt drops the fraction of f, clamping to the int64 range. NaN has
// no integer form and stays the raw string.
func truncateInt(f float64, raw string) Value {
	switch {
	case math.IsNaN(f):
		return String(raw)
	case f >= math.MaxInt64:
		return Int(math.MaxInt64)
	case f <= math.MinInt64:
		return Int(math.MinInt64)
	}
	return Int(int64(f))
}

// EncodeKey embeds an arbitrary object key into one bracket segment.
func EncodeKey(key string) string {
	return KeyToken + base64.StdEncoding.EncodeToString([]byte(key))
}

// DecodeKey reverses EncodeKey. Segments without the token, or with a payload
// that is not valid base64, are returned unchanged.
func DecodeKey(segment string) string {
	payload, ok := strings.CutPrefix(segment, KeyToken)
	if !ok {
		return segment
	}
	if decoded, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(payload); err == nil {
		return string(decoded)
	}
	return segment
}

// IsEncodedKey reports whether segment carries the key token.
func IsEncodedKey(segment string) bool {
	return strings.HasPrefix(segment, KeyToken)
}
