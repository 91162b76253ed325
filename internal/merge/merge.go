// Package merge builds the master dataset: an outer union of every
// (participant, program) pair seen in any source, left-joined against the
// participant registry, program registry, aggregated attendance,
// aggregated surveys and outcomes. One row per pair, always.
package merge

import (
	"sort"

	"impactetl/pkg/contracts/domain"
)

// unknownCity is the published placeholder when no source knows a city.
const unknownCity = "Unknown"

// Inputs carries the cleaned and aggregated tables into the join.
type Inputs struct {
	Participants []domain.ParticipantRecord
	Programs     []domain.ProgramRecord
	Attendance   []domain.AttendanceSummary
	Surveys      []domain.SurveySummary
	Outcomes     []domain.OutcomeRecord
}

// DerivePrograms builds the program registry from the event-grain
// sources. No extract delivers programs directly, so each program's city
// is the most frequent city seen across its attendance events and
// outcome rows, with a lexicographic tie-break to stay order-independent.
func DerivePrograms(events []domain.AttendanceEvent, outcomes []domain.OutcomeRecord) []domain.ProgramRecord {
	counts := make(map[string]map[string]int)
	bump := func(programID string, city *string) {
		if programID == "" {
			return
		}
		if _, ok := counts[programID]; !ok {
			counts[programID] = make(map[string]int)
		}
		if city != nil {
			counts[programID][*city]++
		}
	}
	for _, ev := range events {
		bump(ev.ProgramID, ev.City)
	}
	for _, o := range outcomes {
		bump(o.ProgramID, o.City)
	}

	programs := make([]domain.ProgramRecord, 0, len(counts))
	for programID, cities := range counts {
		rec := domain.ProgramRecord{ProgramID: programID}
		var best string
		bestCount := 0
		for city, count := range cities {
			if count > bestCount || (count == bestCount && city < best) {
				best = city
				bestCount = count
			}
		}
		if bestCount > 0 {
			rec.City = &best
		}
		programs = append(programs, rec)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].ProgramID < programs[j].ProgramID })
	return programs
}

// Build produces the master dataset. Properties it guarantees:
//
//   - every pair present in attendance, surveys or outcomes appears
//     exactly once;
//   - a participant present only in the CRM export still yields one row,
//     with an empty program and every measure nil;
//   - outcome_delta is recomputed from pre/post, never read from input;
//   - absent fields stay nil, except city which falls back to "Unknown".
//
// City precedence when sources disagree: the program's site city wins
// over the participant's home city.
func Build(in Inputs) []domain.MasterRow {
	participants := make(map[string]domain.ParticipantRecord, len(in.Participants))
	for _, p := range in.Participants {
		participants[p.ParticipantID] = p
	}
	programs := make(map[string]domain.ProgramRecord, len(in.Programs))
	for _, p := range in.Programs {
		programs[p.ProgramID] = p
	}
	attendance := make(map[domain.Pair]domain.AttendanceSummary, len(in.Attendance))
	for _, a := range in.Attendance {
		attendance[a.Key()] = a
	}
	surveys := make(map[domain.Pair]domain.SurveySummary, len(in.Surveys))
	for _, s := range in.Surveys {
		surveys[s.Key()] = s
	}
	outcomes := dedupeOutcomes(in.Outcomes)

	// Outer union of keys across the three pair-grain tables.
	keySet := make(map[domain.Pair]struct{})
	for key := range attendance {
		keySet[key] = struct{}{}
	}
	for key := range surveys {
		keySet[key] = struct{}{}
	}
	for key := range outcomes {
		keySet[key] = struct{}{}
	}

	// CRM-only participants get a single keyless row so enrollment
	// without activity stays visible downstream.
	active := make(map[string]struct{})
	for key := range keySet {
		active[key.ParticipantID] = struct{}{}
	}
	for _, p := range in.Participants {
		if _, ok := active[p.ParticipantID]; !ok {
			keySet[domain.Pair{ParticipantID: p.ParticipantID}] = struct{}{}
		}
	}

	keys := make([]domain.Pair, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rows := make([]domain.MasterRow, 0, len(keys))
	for _, key := range keys {
		row := domain.MasterRow{
			ParticipantID: key.ParticipantID,
			ProgramID:     key.ProgramID,
		}

		participant, hasParticipant := participants[key.ParticipantID]
		if hasParticipant {
			row.Email = participant.Email
		}

		outcome, hasOutcome := outcomes[key]
		if hasOutcome {
			row.PreScore = outcome.PreScore
			row.PostScore = outcome.PostScore
			row.OutcomeDelta = outcome.Delta()
		}

		row.City = resolveCity(programs[key.ProgramID], outcome, participant)

		if a, ok := attendance[key]; ok {
			total, attended := a.SessionsTotal, a.SessionsAttended
			row.SessionsTotal = &total
			row.SessionsAttended = &attended
			row.AttendanceRate = a.AttendanceRate
			row.FirstSession = a.FirstSession
			row.LastSession = a.LastSession
		}
		if s, ok := surveys[key]; ok {
			responses := s.Responses
			row.AvgSatisfaction = s.AvgSatisfaction
			row.AvgNPS = s.AvgNPS
			row.SurveyResponses = &responses
			row.LastSurvey = s.LastSurvey
		}

		rows = append(rows, row)
	}
	return rows
}

// dedupeOutcomes resolves duplicate outcome keys: the record with the
// highest post score wins, earliest row on ties. A nil post score loses
// to any scored record.
func dedupeOutcomes(records []domain.OutcomeRecord) map[domain.Pair]domain.OutcomeRecord {
	out := make(map[domain.Pair]domain.OutcomeRecord)
	for _, rec := range records {
		key := rec.Key()
		existing, ok := out[key]
		if !ok {
			out[key] = rec
			continue
		}
		if betterPost(rec.PostScore, existing.PostScore) {
			out[key] = rec
		}
	}
	return out
}

func betterPost(candidate, existing *float64) bool {
	if candidate == nil {
		return false
	}
	if existing == nil {
		return true
	}
	return *candidate > *existing
}

// resolveCity applies the documented precedence: program site city, then
// the outcome row's city, then the participant's home city, then the
// "Unknown" placeholder.
func resolveCity(program domain.ProgramRecord, outcome domain.OutcomeRecord, participant domain.ParticipantRecord) *string {
	if program.City != nil {
		return program.City
	}
	if outcome.City != nil {
		return outcome.City
	}
	if participant.City != nil {
		return participant.City
	}
	city := unknownCity
	return &city
}
