package timetable

import "strings"

// Rule is a literal, case-sensitive substring replacement.
type Rule struct {
	Find    string
	Replace string
}

// Tables holds every ordered rule list the compactor uses. Rules are applied
// in slice order, so more specific phrases must come first.
type Tables struct {
	Compound []Rule
	Atomic   []Rule
	Symbol   []Rule
	// Numerals are trailing suffixes, longest-first where they overlap.
	Numerals  []string
	Locations []Rule
}

// DefaultTables returns a fresh copy of the built-in abbreviation tables.
func DefaultTables() Tables {
	return Tables{
		Compound: []Rule{
			{"Software Engineering", "SE"},
			{"Data Structures", "DS"},
			{"Intro to AI", "AI"},
			{"Practical Physics-Computing Lecture", "Labs-Comp Lec"},
			{"Practical Physics-Computing Drop-in", "Labs-Comp DI"},
			{"Probability & Statistics for Physicists", "Prob+Stats P"},
			{"Introductory Mathematics for Physics", "Intro M for P"},
			{"Intro to Coding and Data Analysis", "Coding+D.A."},
			{"Core Physics I Problem Class", "Core P PrbCls"},
			{"Intro Mathematics Examples Class", "Intro M ExCls"},
			{"Practical Physics", "Labs"},
			{"Problem Class", "PrbCls"},
		},
		Atomic: []Rule{
			{"Introductory", "Intro"},
			{"Introduction", "Intro"},
			{"Mathematics", "M"},
			{"Physics", "P"},
			{"Probability", "Prob"},
			{"Statistics", "Stats"},
			{"Computing", "Comp"},
			{"Lecture", "Lec"},
			{"Tutorial", "Tut"},
			{"Workshop", "W"},
			{"Project", "Proj"},
			{"Assembly", "Asmbly"},
		},
		Symbol: []Rule{
			{" and ", " + "},
			{" & ", " + "},
			{" for ", " "},
			{" of ", " "},
			{" to ", " "},
		},
		Numerals: []string{" V", " IV", " III", " II", " I"},
		Locations: []Rule{
			{"Physics Building", "Phys"},
			{"Priory Road Complex", "PrioryRd"},
			{"Biomedical Sciences Building", "BioSci"},
			{"31-37 St. Michael's Hill", "StMichHill"},
			{"Queen's Building", "Queens"},
			{"Chemistry Building", "Chem"},
			{"Fry Building", "Fry"},
			{"Lecture Theatre", "LT"},
			{"Building", "Bldg"},
			{"Complex", "Cmplx"},
			{" Room", ""},
			{"Rear:", ""},
			{": ", ":"},
		},
	}
}

// Title shortens an event title: compound phrases, atomic words, connectives,
// one trailing roman numeral, then any "grp..." tokens.
func (t Tables) Title(s string) string {
	s = applyRules(s, t.Compound)
	s = applyRules(s, t.Atomic)
	s = applyRules(s, t.Symbol)
	s = stripSuffix(s, t.Numerals)
	return dropGroupTokens(s)
}

// Location shortens a room/building string.
func (t Tables) Location(s string) string {
	return applyRules(s, t.Locations)
}

// CompactTitle applies the default tables to a title.
func CompactTitle(s string) string {
	return DefaultTables().Title(s)
}

// CompactLocation applies the default tables to a location.
func CompactLocation(s string) string {
	return DefaultTables().Location(s)
}

func applyRules(s string, rules []Rule) string {
	for _, r := range rules {
		if r.Find == "" {
			continue
		}
		s = strings.ReplaceAll(s, r.Find, r.Replace)
	}
	return s
}

// stripSuffix removes the first matching suffix only.
func stripSuffix(s string, suffixes []string) string {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

func dropGroupTokens(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "grp") {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
