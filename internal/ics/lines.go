package ics

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// physLine is one raw input line without its terminator.
type physLine struct {
	text  string
	start int // byte offset of the first character
	end   int // byte offset just past the terminator
	num   int // 1-based
}

// logicalLine is an unfolded, trimmed content line.
type logicalLine struct {
	text  string
	start int
	end   int
	num   int
}

// lineReader turns a byte stream into logical content lines. When folded
// is set, RFC 5545 continuation lines (leading space or tab) are joined to
// the line before them; otherwise every physical line is trimmed on its own.
type lineReader struct {
	r      *bufio.Reader
	folded bool

	off  int
	num  int
	peek *physLine
	back *logicalLine
	err  error
	eof  bool
}

func newLineReader(r io.Reader, folded bool) *lineReader {
	return &lineReader{r: bufio.NewReader(r), folded: folded}
}

func (lr *lineReader) physical() (physLine, bool) {
	if lr.peek != nil {
		pl := *lr.peek
		lr.peek = nil
		return pl, true
	}
	if lr.eof {
		return physLine{}, false
	}

	raw, err := lr.r.ReadString('\n')
	if err != nil {
		lr.eof = true
		if !errors.Is(err, io.EOF) {
			lr.err = err
		}
		if raw == "" {
			return physLine{}, false
		}
	}

	lr.num++
	pl := physLine{
		text:  strings.TrimRight(raw, "\r\n"),
		start: lr.off,
		end:   lr.off + len(raw),
		num:   lr.num,
	}
	lr.off += len(raw)
	return pl, true
}

// next returns the next non-blank logical line.
func (lr *lineReader) next() (logicalLine, bool) {
	if lr.back != nil {
		ll := *lr.back
		lr.back = nil
		return ll, true
	}

	for {
		pl, ok := lr.physical()
		if !ok {
			return logicalLine{}, false
		}

		ll := logicalLine{text: pl.text, start: pl.start, end: pl.end, num: pl.num}
		if lr.folded {
			var b strings.Builder
			b.WriteString(pl.text)
			for {
				cont, ok := lr.physical()
				if !ok {
					break
				}
				if cont.text == "" || (cont.text[0] != ' ' && cont.text[0] != '\t') {
					lr.peek = &cont
					break
				}
				b.WriteString(cont.text[1:])
				ll.end = cont.end
			}
			ll.text = b.String()
		}

		ll.text = strings.TrimSpace(ll.text)
		if ll.text == "" {
			continue
		}
		return ll, true
	}
}

// unread pushes ll back so the following next call returns it again.
func (lr *lineReader) unread(ll logicalLine) {
	lr.back = &ll
}
