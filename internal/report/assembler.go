package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Placeholder tokens recognized in a report template. TokenTrace marks
// the mandatory timeline payload; TokenTimer and TokenState mark the
// optional sampled-timer and state-transition payloads.
const (
	TokenTrace = "<trace>"
	TokenTimer = "<timer>"
	TokenState = "<state>"
)

// payloadDelimiter wraps each substituted payload so it lands in the
// template as a literal string.
const payloadDelimiter = '"'

// Assemble streams template into dst, substituting payloads at their
// placeholder tokens. Template content outside the tokens is copied
// verbatim. On a matched token the assembler writes the opening
// delimiter, streams the whole payload byte-for-byte, writes the
// closing delimiter, and resumes scanning right after the token. A nil
// or empty optional payload omits its region entirely, delimiters
// included.
//
// The whole operation is a single forward pass over the template and
// every payload; nothing is fully buffered, so payloads may be
// arbitrarily large.
func Assemble(dst io.Writer, template, timeline, timer, state io.Reader) error {
	if timeline == nil {
		return errors.New("timeline payload is required")
	}

	type region struct {
		payload  io.Reader
		optional bool
	}
	regions := []struct {
		token string
		region
	}{
		{TokenTrace, region{timeline, false}},
		{TokenTimer, region{timer, true}},
		{TokenState, region{state, true}},
	}

	bw := bufio.NewWriter(dst)
	br := bufio.NewReader(template)

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		if b != '<' {
			if err := bw.WriteByte(b); err != nil {
				return fmt.Errorf("failed to write template content: %w", err)
			}
			continue
		}

		matched := -1
		for i, r := range regions {
			rest := r.token[1:]
			head, _ := br.Peek(len(rest))
			if string(head) == rest {
				matched = i
				break
			}
		}
		if matched == -1 {
			if err := bw.WriteByte('<'); err != nil {
				return fmt.Errorf("failed to write template content: %w", err)
			}
			continue
		}

		if _, err := br.Discard(len(regions[matched].token) - 1); err != nil {
			return fmt.Errorf("failed to advance past placeholder: %w", err)
		}
		if err := substitute(bw, regions[matched].payload, regions[matched].optional); err != nil {
			return fmt.Errorf("failed to substitute %s: %w", regions[matched].token, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// substitute streams one payload into the output between delimiters.
// Optional payloads are probed for a first byte; if there is none the
// region is omitted.
func substitute(bw *bufio.Writer, payload io.Reader, optional bool) error {
	if optional {
		if payload == nil {
			return nil
		}
		pr := bufio.NewReader(payload)
		if _, err := pr.Peek(1); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to probe payload: %w", err)
		}
		payload = pr
	}

	if err := bw.WriteByte(payloadDelimiter); err != nil {
		return fmt.Errorf("failed to write delimiter: %w", err)
	}
	if _, err := io.Copy(bw, payload); err != nil {
		return fmt.Errorf("failed to stream payload: %w", err)
	}
	if err := bw.WriteByte(payloadDelimiter); err != nil {
		return fmt.Errorf("failed to write delimiter: %w", err)
	}
	return nil
}
