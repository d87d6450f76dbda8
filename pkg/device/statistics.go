// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"time"
)

// Statistics tracks send outcomes for one session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Sends       uint64 // Send calls
	Attempts    uint64 // frames written, including retries
	Completions uint64
	NoResponses uint64 // Send calls that exhausted every attempt
	Resets      uint64

	// Failed attempt causes
	Timeouts        uint64
	ErrorReplies    uint64
	SeqMismatches   uint64
	TransportErrors uint64
	DecodeErrors    uint64 // datagrams that were not frames (ignored)
	Reconnects      uint64

	// Rates (calculated)
	SendRate    float64 // sends/sec
	FailureRate float64 // failed attempts/sec
}

// outcome of one attempt, fed to Update
type outcome int

const (
	outcomeSent outcome = iota
	outcomeAttempt
	outcomeCompletion
	outcomeTimeout
	outcomeErrorReply
	outcomeSeqMismatch
	outcomeTransport
	outcomeDecode
	outcomeReconnect
	outcomeNoResponse
	outcomeReset
)

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update counts one outcome
func (s *Statistics) Update(o outcome) {
	switch o {
	case outcomeSent:
		s.Sends++
	case outcomeAttempt:
		s.Attempts++
	case outcomeCompletion:
		s.Completions++
	case outcomeTimeout:
		s.Timeouts++
	case outcomeErrorReply:
		s.ErrorReplies++
	case outcomeSeqMismatch:
		s.SeqMismatches++
	case outcomeTransport:
		s.TransportErrors++
	case outcomeDecode:
		s.DecodeErrors++
	case outcomeReconnect:
		s.Reconnects++
	case outcomeNoResponse:
		s.NoResponses++
	case outcomeReset:
		s.Resets++
	}

	// Update timestamp for rate calculation
	s.LastUpdateTime = time.Now()
}

// FailedAttempts is the number of attempts that did not complete
func (s *Statistics) FailedAttempts() uint64 {
	return s.Timeouts + s.ErrorReplies + s.SeqMismatches + s.TransportErrors
}

// CalculateRates calculates send and failure rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.SendRate = float64(s.Sends) / elapsed
		s.FailureRate = float64(s.FailedAttempts()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var completedPercent float64
	if s.Sends > 0 {
		completedPercent = float64(s.Completions) * 100.0 / float64(s.Sends)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Sends:           %8d\n", s.Sends)
	result += fmt.Sprintf("Completed:       %8d (%.1f%%)\n", s.Completions, completedPercent)
	result += fmt.Sprintf("Attempts:        %8d\n", s.Attempts)

	if s.NoResponses > 0 {
		result += fmt.Sprintf("No Response:     %8d\n", s.NoResponses)
	}
	if failed := s.FailedAttempts(); failed > 0 {
		result += fmt.Sprintf("Failed Attempts: %8d\n", failed)
		if s.Timeouts > 0 {
			result += fmt.Sprintf("  Timeouts:         %5d\n", s.Timeouts)
		}
		if s.ErrorReplies > 0 {
			result += fmt.Sprintf("  Error Replies:    %5d\n", s.ErrorReplies)
		}
		if s.SeqMismatches > 0 {
			result += fmt.Sprintf("  Seq Mismatch:     %5d\n", s.SeqMismatches)
		}
		if s.TransportErrors > 0 {
			result += fmt.Sprintf("  Transport Errors: %5d\n", s.TransportErrors)
		}
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", s.DecodeErrors)
	}
	if s.Reconnects > 0 {
		result += fmt.Sprintf("Reconnects:      %8d\n", s.Reconnects)
	}

	result += fmt.Sprintf("Send Rate:       %8.1f sends/sec\n", s.SendRate)
	result += fmt.Sprintf("Failure Rate:    %8.1f failures/sec\n", s.FailureRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
