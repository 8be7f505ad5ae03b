package protocol

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidResponse = errors.New("invalid response")

// Encode renders resp as "code:description:body". The body is not escaped,
// so a colon inside it cannot be told apart from a separator by position
// alone; ParseResponse only splits on the first two colons.
func Encode(resp Response) []byte {
	return []byte(strconv.Itoa(resp.Status.Code) + ":" + resp.Status.Description + ":" + resp.Body)
}

func ParseResponse(data []byte) (Response, error) {
	parts := strings.SplitN(string(data), ":", 3)
	if len(parts) != 3 {
		return Response{}, ErrInvalidResponse
	}
	code, err := strconv.Atoi(parts[0])
	if err != nil {
		return Response{}, ErrInvalidResponse
	}
	status, ok := statusFromCode(code)
	if !ok || status.Description != parts[1] {
		return Response{}, ErrInvalidResponse
	}
	return Response{Status: status, Body: parts[2]}, nil
}
