// MIT License
//
// Copyright (c) 2016 Rick Beton
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package tinycdn

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type commaSeparatedList string

// Contains reports whether wanted occurs as a substring of any
// comma-separated element of list, so "gzip;q=1.0" matches "gzip". Per
// spec.md §4.6, Accept-Encoding is matched by substring presence rather than
// by q-values.
func (list commaSeparatedList) Contains(wanted string) bool {
	for _, part := range strings.Split(string(list), ",") {
		if strings.Contains(part, wanted) {
			return true
		}
	}
	return false
}

//-------------------------------------------------------------------------------------------------

// code is the handler's own status vocabulary, kept distinct from
// net/http's constants. directory (0) is not an HTTP status; of these
// values only methodNotAllowed is used, by writeNotAllowed.
type code int

const (
	directory          code = 0
	continued          code = 100
	ok                 code = 200
	notModified        code = 304
	forbidden          code = 403
	notFound           code = 404
	methodNotAllowed   code = 405
	serviceUnavailable code = 503
)

func (c code) String() string {
	switch c {
	case continued:
		return "100 Continue"
	case ok:
		return "200 OK"
	case notModified:
		return "304 Not Modified"
	case forbidden:
		return "403 Forbidden"
	case notFound:
		return "404 Not Found"
	case methodNotAllowed:
		return "405 Method Not Allowed"
	case serviceUnavailable:
		return "503 Service Unavailable"
	}
	return fmt.Sprintf("%d Unknown", int(c))
}

//-------------------------------------------------------------------------------------------------

// headerStringer renders an http.Header compactly for log lines, sorted by
// header name, e.g. "[Content-Encoding: gzip. Vary: Accept-Encoding]".
type headerStringer http.Header

func (h headerStringer) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range http.Header(h) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v, ", ")))
	}
	sort.Strings(parts)
	return "[" + strings.Join(parts, ". ") + "]"
}
