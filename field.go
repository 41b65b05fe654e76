package sequans

import (
	"bytes"
	"strconv"
)

const (
	dataStartCharacter = ':'
	responseDelimiter  = ','
	// dataStartCutset is skipped before the first value
	dataStartCutset = ": "
)

// ExtractField copies the index-th value of a response line into out.
//
// response is read up to its first NUL byte, the way ReadResponse leaves it.
// Everything from the last carriage return onwards is ignored. Values start
// after the first ':' (and any spaces following it) and are separated by
// commas; index 1 is the first value. A carriage return inside the selected
// value ends it.
//
//	+SQNHTTPRCV: 1,200,35\r\nOK\r\n   index 2 -> "200", index 3 -> "35"
//
// ExtractField fails if there is no ':', if index is out of range, or if out
// cannot hold the value plus a terminating NUL. On success it returns the
// value length; out[n] is set to NUL. response is never modified.
func ExtractField(response []byte, index int, out []byte) (int, bool) {
	value, ok := fieldValue(response, index)
	if !ok {
		return 0, false
	}

	if len(value)+1 > len(out) {
		return 0, false
	}

	n := copy(out, value)
	out[n] = 0
	return n, true
}

// Field is ExtractField for callers that hold the response as a string and
// have no fixed output capacity.
func Field(response string, index int) (string, bool) {
	value, ok := fieldValue([]byte(response), index)
	if !ok {
		return "", false
	}
	return string(value), true
}

// FieldInt parses the index-th value as a decimal integer.
func FieldInt(response []byte, index int) (int, bool) {
	value, ok := fieldValue(response, index)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// fieldValue returns a view into response; callers copy before handing it
// out.
func fieldValue(response []byte, index int) ([]byte, bool) {
	if index < 1 {
		return nil, false
	}

	if end := bytes.IndexByte(response, 0); end >= 0 {
		response = response[:end]
	}
	if end := bytes.LastIndexByte(response, carriageReturn); end >= 0 {
		response = response[:end]
	}

	start := bytes.IndexByte(response, dataStartCharacter)
	if start < 0 {
		return nil, false
	}
	data := bytes.TrimLeft(response[start:], dataStartCutset)

	values := bytes.Split(data, []byte{responseDelimiter})
	if index > len(values) {
		return nil, false
	}

	value := values[index-1]
	if end := bytes.LastIndexByte(value, carriageReturn); end >= 0 {
		value = value[:end]
	}
	return value, true
}
