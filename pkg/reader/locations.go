package reader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// charsPerLocation is the target size of one location. Locations are
// pagination-independent: they depend only on the text, never on the
// viewport.
const charsPerLocation = 1024

type location struct {
	spine  int
	idref  string
	offset int
	text   string
	cfi    string
}

var cfiRE = regexp.MustCompile(`^epubcfi\(/6/(\d+)(?:\[[^\]]*\])?!/4(?:/\d+)*:(\d+)\)$`)

func cfiFor(spine int, idref string, offset int) string {
	return fmt.Sprintf("epubcfi(/6/%d[%s]!/4:%d)", 2*(spine+1), idref, offset)
}

// parseCFI extracts the spine index and character offset from a location
// token produced by cfiFor.
func parseCFI(token string) (spine, offset int, ok bool) {
	m := cfiRE.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, false
	}
	step, err := strconv.Atoi(m[1])
	if err != nil || step < 2 || step%2 != 0 {
		return 0, 0, false
	}
	offset, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return step/2 - 1, offset, true
}

// splitLocations breaks one spine section's text into locations of at most
// limit runes, preferring to break on whitespace in the back half of a chunk.
// A section without text still yields a single empty location so that
// image-only pages stay reachable.
func splitLocations(spine int, idref, text string, limit int) []location {
	runes := []rune(text)
	if len(runes) == 0 {
		return []location{{spine: spine, idref: idref, cfi: cfiFor(spine, idref, 0)}}
	}

	var locs []location
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			end = len(runes)
		} else {
			for k := end; k > start+limit/2; k-- {
				if unicode.IsSpace(runes[k-1]) {
					end = k
					break
				}
			}
		}
		locs = append(locs, location{
			spine:  spine,
			idref:  idref,
			offset: start,
			text:   strings.TrimSpace(string(runes[start:end])),
			cfi:    cfiFor(spine, idref, start),
		})
		start = end
	}
	return locs
}

// fractionAt maps a location index to its fraction through the book. A
// single-location book is complete as soon as it is open.
func fractionAt(index, count int) float64 {
	if count <= 1 {
		return 1
	}
	return float64(index) / float64(count-1)
}
