package loader

import (
	"fmt"
	"strings"

	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/tidwall/gjson"
)

// maxLeaders is how many clutch and multi-kill performers a combat chunk lists.
const maxLeaders = 3

// ChunkTeam converts one team record into retrieval chunks in a fixed order:
// overview, map win rates, per-map details, players, agents, combat,
// opponents, then one chunk per non-empty insight section.
//
// Stats missing from the record are left out of the text. Numbers are
// copied from the source JSON as written.
func ChunkTeam(team scoutrag.TeamRecord) []scoutrag.Chunk {
	var texts []string
	name := team.TeamName

	if len(team.Metrics) > 0 {
		m := gjson.ParseBytes(team.Metrics)
		texts = appendNonEmpty(texts, overviewChunk(name, m))
		texts = appendNonEmpty(texts, mapWinRateChunk(name, m))
		texts = append(texts, mapDetailChunks(name, m)...)
		texts = appendNonEmpty(texts, playerChunk(name, m))
		texts = appendNonEmpty(texts, agentChunk(name, m))
		texts = appendNonEmpty(texts, combatChunk(name, m))
		texts = appendNonEmpty(texts, opponentChunk(name, m))
	}

	for _, in := range team.Insights {
		if strings.TrimSpace(in.Text) == "" {
			continue
		}
		texts = append(texts, fmt.Sprintf("%s %s Scouting Report:\n%s", name, in.Section, in.Text))
	}

	chunks := make([]scoutrag.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = scoutrag.Chunk{Text: text, Source: name}
	}
	return chunks
}

func overviewChunk(team string, m gjson.Result) string {
	s := newSection("%s Team Overview:", team)

	s.line(field("Overall Win Rate: %s%%", m.Get("win_rate")))

	if side := m.Get("side_metrics"); present(side) {
		s.line(field("Attack Win Rate: %s%%", side.Get("attack_win_rate")) +
			suffix(" (%s rounds)", side.Get("attack_rounds"), side.Get("attack_win_rate")))
		s.line(field("Defense Win Rate: %s%%", side.Get("defense_win_rate")) +
			suffix(" (%s rounds)", side.Get("defense_rounds"), side.Get("defense_win_rate")))
		s.line(field("Attack K/D: %s", side.Get("attack_kd")), field("Defense K/D: %s", side.Get("defense_kd")))
	}

	if fd := m.Get("first_duel"); present(fd) {
		s.line(field("First Kill Rate: %s%%", fd.Get("team_first_kill_rate")))
		s.line(field("First Kill Conversion: %s%%", fd.Get("first_kill_conversion_rate")))
	}

	s.line(field("Trade Efficiency: %s%%", m.Get("combat_metrics.trade_efficiency")))

	if rp := m.Get("round_type_performance"); present(rp) {
		s.line(field("Pistol Win Rate: %s%%", rp.Get("pistol.win_rate")))
		s.line(field("Eco Win Rate: %s%%", rp.Get("eco.win_rate")))
		s.line(field("Full Buy Win Rate: %s%%", rp.Get("full_buy.win_rate")))
	}

	var sites []string
	m.Get("site_preferences").ForEach(func(site, pct gjson.Result) bool {
		sites = appendNonEmpty(sites, prefixed(site.String()+"-Site ", field("%s%%", pct)))
		return true
	})
	if joined := joinPresent(sites); joined != "" {
		s.line("Site Preferences: " + joined)
	}

	return s.String()
}

func mapWinRateChunk(team string, m gjson.Result) string {
	s := newSection("%s Map Win Rates:", team)
	m.Get("win_rate_by_map").ForEach(func(name, wr gjson.Result) bool {
		s.line(prefixed(name.String()+": ", field("%s%%", wr)))
		return true
	})
	return s.String()
}

func mapDetailChunks(team string, m gjson.Result) []string {
	var chunks []string
	m.Get("map_detailed").ForEach(func(name, stats gjson.Result) bool {
		s := newSection("%s on %s:", team, name.String())
		s.line(field("Rounds Played: %s", stats.Get("rounds_played")), field("Win Rate: %s%%", stats.Get("win_rate")))
		s.line(field("Attack: %s%%", stats.Get("attack_win_rate")) +
			suffix(" (%s rounds)", stats.Get("attack_rounds"), stats.Get("attack_win_rate")))
		s.line(field("Defense: %s%%", stats.Get("defense_win_rate")) +
			suffix(" (%s rounds)", stats.Get("defense_rounds"), stats.Get("defense_win_rate")))
		s.line(field("Top Agent: %s", stats.Get("top_agent")))
		chunks = appendNonEmpty(chunks, s.String())
		return true
	})
	return chunks
}

func playerChunk(team string, m gjson.Result) string {
	s := newSection("%s Player Stats:", team)
	for _, p := range m.Get("player_tendencies").Array() {
		stats := joinPresent([]string{
			field("KD %s", p.Get("kd_ratio")),
			field("Avg Kills %s", p.Get("avg_kills")),
			field("Top Agent %s", p.Get("top_agent")) +
				suffix(" (%s%%)", p.Get("top_agent_rate"), p.Get("top_agent")),
			field("First Kill Rate %s%%", p.Get("first_kill_rate")),
		})
		s.line(labelled(p.Get("player"), stats))
	}
	return s.String()
}

func agentChunk(team string, m gjson.Result) string {
	agents := m.Get("agent_composition").Array()
	if len(agents) == 0 {
		return ""
	}

	s := newSection("%s Agent Composition:", team)
	for _, a := range agents {
		rate := joinWords(field("%s%% pick rate", a.Get("pick_rate")), field("(%s picks)", a.Get("pick_count")))
		s.line(labelled(a.Get("agent"), rate))
	}
	if s.lines == 0 {
		return ""
	}

	var roles []string
	m.Get("role_distribution").ForEach(func(role, pct gjson.Result) bool {
		roles = appendNonEmpty(roles, prefixed(role.String()+" ", field("%s%%", pct)))
		return true
	})
	if joined := joinPresent(roles); joined != "" {
		s.line("Role Distribution: " + joined)
	}
	return s.String()
}

func combatChunk(team string, m gjson.Result) string {
	cm := m.Get("combat_metrics")
	if !present(cm) {
		return ""
	}

	s := newSection("%s Combat Metrics:", team)
	s.line(field("Trade Efficiency: %s%%", cm.Get("trade_efficiency")))
	s.line(field("Total Kills Analyzed: %s", cm.Get("total_kills_analyzed")))

	var clutch []string
	for _, c := range leaders(cm.Get("clutch_performers")) {
		var record string
		if won, faced := field("%s", c.Get("clutches_won")), field("%s", c.Get("clutches_faced")); won != "" && faced != "" {
			record = won + "/" + faced + " clutches"
		}
		record = joinWords(record, field("(%s%%)", c.Get("clutch_rate")))
		clutch = appendNonEmpty(clutch, labelled(c.Get("player"), record))
	}
	if len(clutch) > 0 {
		s.line("Top Clutch Players:")
		for _, line := range clutch {
			s.line("  " + line)
		}
	}

	var multi []string
	for _, mk := range leaders(cm.Get("multi_killers")) {
		counts := joinPresent([]string{
			field("2K: %s", mk.Get("2k")),
			field("3K: %s", mk.Get("3k")),
			field("4K: %s", mk.Get("4k")),
		})
		detail := field("%s multi-kills", mk.Get("total"))
		if counts != "" {
			detail = joinWords(detail, "("+counts+")")
		}
		multi = appendNonEmpty(multi, labelled(mk.Get("player"), detail))
	}
	if len(multi) > 0 {
		s.line("Top Multi-Kill Players:")
		for _, line := range multi {
			s.line("  " + line)
		}
	}

	return s.String()
}

func opponentChunk(team string, m gjson.Result) string {
	s := newSection("%s Opponent Record:", team)
	for _, o := range m.Get("opponent_stats").Array() {
		record := field("%s%% win rate", o.Get("win_rate"))
		counts := joinPresent([]string{
			field("%s matches", o.Get("matches")),
			field("%s rounds", o.Get("rounds_played")),
		})
		if counts != "" {
			record = joinWords(record, "("+counts+")")
		}
		s.line(prefixed("vs ", labelled(o.Get("opponent"), record)))
	}
	return s.String()
}

// leaders returns at most maxLeaders entries of a JSON array.
func leaders(list gjson.Result) []gjson.Result {
	all := list.Array()
	if len(all) > maxLeaders {
		all = all[:maxLeaders]
	}
	return all
}

// section accumulates a header line and body lines. It renders to "" when
// no body line was written.
type section struct {
	b     strings.Builder
	lines int
}

func newSection(format string, args ...any) *section {
	s := &section{}
	fmt.Fprintf(&s.b, format, args...)
	s.b.WriteByte('\n')
	return s
}

// line writes the present parts joined by ", ". Nothing is written when every
// part is empty.
func (s *section) line(parts ...string) {
	text := joinPresent(parts)
	if text == "" {
		return
	}
	s.b.WriteString(text)
	s.b.WriteByte('\n')
	s.lines++
}

func (s *section) String() string {
	if s.lines == 0 {
		return ""
	}
	return s.b.String()
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

// value renders a JSON value the way it appears in the source: strings
// unquoted, everything else verbatim.
func value(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

// field formats a single %s verb with r, or returns "" when r is missing.
func field(format string, r gjson.Result) string {
	if !present(r) {
		return ""
	}
	return fmt.Sprintf(format, value(r))
}

// suffix is field, but only when the value it qualifies is present too.
func suffix(format string, r, qualifies gjson.Result) string {
	if !present(qualifies) {
		return ""
	}
	return field(format, r)
}

// labelled renders a "label: detail" row. Rows without a label or without
// any detail are dropped.
func labelled(label gjson.Result, detail string) string {
	if !present(label) || detail == "" {
		return ""
	}
	return value(label) + ": " + detail
}

// prefixed prepends prefix to a non-empty s.
func prefixed(prefix, s string) string {
	if s == "" {
		return ""
	}
	return prefix + s
}

func joinPresent(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func joinWords(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func appendNonEmpty(list []string, s string) []string {
	if s == "" {
		return list
	}
	return append(list, s)
}
