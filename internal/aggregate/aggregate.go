// Package aggregate collapses event-grain tables to one summary row per
// (participant, program) pair. The master join depends on this collapse:
// joining event-grain rows directly would fan the grain out.
//
// Every fold here is commutative (count, sum, min, max), so summaries are
// invariant under permutation of input order.
package aggregate

import (
	"sort"
	"time"

	"impactetl/pkg/contracts/domain"
)

// Attendance collapses attendance events into one summary per pair.
// The rate is nil, not zero, when a pair somehow has no sessions; nil
// dates are excluded from the first/last fold.
func Attendance(events []domain.AttendanceEvent) []domain.AttendanceSummary {
	byKey := make(map[domain.Pair]*domain.AttendanceSummary)

	for _, ev := range events {
		key := ev.Key()
		s, ok := byKey[key]
		if !ok {
			s = &domain.AttendanceSummary{
				ParticipantID: key.ParticipantID,
				ProgramID:     key.ProgramID,
			}
			byKey[key] = s
		}
		s.SessionsTotal++
		if ev.Attended != nil && *ev.Attended {
			s.SessionsAttended++
		}
		s.FirstSession = minDate(s.FirstSession, ev.EventDate)
		s.LastSession = maxDate(s.LastSession, ev.EventDate)
	}

	summaries := make([]domain.AttendanceSummary, 0, len(byKey))
	for _, s := range byKey {
		if s.SessionsTotal > 0 {
			rate := float64(s.SessionsAttended) / float64(s.SessionsTotal)
			s.AttendanceRate = &rate
		}
		summaries = append(summaries, *s)
	}
	sortByKey(summaries, func(s domain.AttendanceSummary) domain.Pair { return s.Key() })
	return summaries
}

// Surveys collapses survey responses into one summary per pair. Averages
// run over non-nil values only; Responses counts every submission, scored
// or not. A pair with zero responses is absent, never a zero row.
func Surveys(responses []domain.SurveyResponse) []domain.SurveySummary {
	type acc struct {
		summary    domain.SurveySummary
		scoreSum   float64
		scoreCount int
		npsSum     float64
		npsCount   int
	}
	byKey := make(map[domain.Pair]*acc)

	for _, r := range responses {
		key := r.Key()
		a, ok := byKey[key]
		if !ok {
			a = &acc{summary: domain.SurveySummary{
				ParticipantID: key.ParticipantID,
				ProgramID:     key.ProgramID,
			}}
			byKey[key] = a
		}
		a.summary.Responses++
		if r.Score != nil {
			a.scoreSum += *r.Score
			a.scoreCount++
		}
		if r.NPS != nil {
			a.npsSum += *r.NPS
			a.npsCount++
		}
		a.summary.LastSurvey = maxDate(a.summary.LastSurvey, r.EventDate)
	}

	summaries := make([]domain.SurveySummary, 0, len(byKey))
	for _, a := range byKey {
		if a.scoreCount > 0 {
			avg := a.scoreSum / float64(a.scoreCount)
			a.summary.AvgSatisfaction = &avg
		}
		if a.npsCount > 0 {
			avg := a.npsSum / float64(a.npsCount)
			a.summary.AvgNPS = &avg
		}
		summaries = append(summaries, a.summary)
	}
	sortByKey(summaries, func(s domain.SurveySummary) domain.Pair { return s.Key() })
	return summaries
}

func minDate(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.Before(*current) {
		t := *candidate
		return &t
	}
	return current
}

func maxDate(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.After(*current) {
		t := *candidate
		return &t
	}
	return current
}

func sortByKey[T any](items []T, key func(T) domain.Pair) {
	sort.Slice(items, func(i, j int) bool {
		return key(items[i]).Less(key(items[j]))
	})
}
