package loader

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cloud9JSON = `{
  "team_name": "Cloud9",
  "matches_analyzed": 14,
  "metrics": {
    "win_rate": 57.1,
    "side_metrics": {
      "attack_rounds": 150, "attack_win_rate": 48.0, "attack_kd": 0.98,
      "defense_rounds": 148, "defense_win_rate": 55.41, "defense_kd": 1.12
    },
    "first_duel": {"team_first_kill_rate": 52.3, "first_kill_conversion_rate": 71},
    "combat_metrics": {
      "trade_efficiency": 23.5,
      "total_kills_analyzed": 2210,
      "clutch_performers": [
        {"player": "OXY", "clutches_won": 6, "clutches_faced": 20, "clutch_rate": 30.0},
        {"player": "v1c", "clutches_won": 4, "clutches_faced": 18, "clutch_rate": 22.2},
        {"player": "Xeppaa", "clutches_won": 3, "clutches_faced": 15, "clutch_rate": 20.0},
        {"player": "mitch", "clutches_won": 1, "clutches_faced": 12, "clutch_rate": 8.3}
      ],
      "multi_killers": [
        {"player": "OXY", "2k": 40, "3k": 12, "4k": 3, "total": 55}
      ]
    },
    "round_type_performance": {
      "pistol": {"win_rate": 60.7},
      "full_buy": {"win_rate": 54.0}
    },
    "site_preferences": {"B": 41.2, "A": 38.8, "C": 20.0},
    "win_rate_by_map": {"Lotus": 66.7, "Ascent": 50.0},
    "map_detailed": {
      "Lotus": {"rounds_played": 72, "win_rate": 66.7, "attack_win_rate": 58.3, "attack_rounds": 36, "defense_win_rate": 75.0, "defense_rounds": 36, "top_agent": "Raze"},
      "Ascent": {"rounds_played": 48, "win_rate": 50.0}
    },
    "player_tendencies": [
      {"player": "OXY", "kd_ratio": 1.21, "avg_kills": 18.4, "top_agent": "Jett", "top_agent_rate": 85.7, "first_kill_rate": 19.1}
    ],
    "agent_composition": [
      {"agent": "Omen", "pick_rate": 92.9, "pick_count": 13}
    ],
    "role_distribution": {"Controller": 25.0, "Duelist": 25.0},
    "opponent_stats": [
      {"opponent": "Sentinels", "win_rate": 50.0, "matches": 2, "rounds_played": 46}
    ]
  },
  "insights": {
    "attack": "Cloud9 default into a late B split.",
    "empty": "   ",
    "economy": "Force buys after a lost pistol."
  }
}`

func parseTeam(t *testing.T, raw string) scoutrag.TeamRecord {
	t.Helper()
	var team scoutrag.TeamRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &team))
	return team
}

func texts(chunks []scoutrag.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestChunkTeamFullRecord(t *testing.T) {
	chunks := ChunkTeam(parseTeam(t, cloud9JSON))

	want := []string{
		"Cloud9 Team Overview:\n" +
			"Overall Win Rate: 57.1%\n" +
			"Attack Win Rate: 48.0% (150 rounds)\n" +
			"Defense Win Rate: 55.41% (148 rounds)\n" +
			"Attack K/D: 0.98, Defense K/D: 1.12\n" +
			"First Kill Rate: 52.3%\n" +
			"First Kill Conversion: 71%\n" +
			"Trade Efficiency: 23.5%\n" +
			"Pistol Win Rate: 60.7%\n" +
			"Full Buy Win Rate: 54.0%\n" +
			"Site Preferences: B-Site 41.2%, A-Site 38.8%, C-Site 20.0%\n",
		"Cloud9 Map Win Rates:\nLotus: 66.7%\nAscent: 50.0%\n",
		"Cloud9 on Lotus:\n" +
			"Rounds Played: 72, Win Rate: 66.7%\n" +
			"Attack: 58.3% (36 rounds)\n" +
			"Defense: 75.0% (36 rounds)\n" +
			"Top Agent: Raze\n",
		"Cloud9 on Ascent:\nRounds Played: 48, Win Rate: 50.0%\n",
		"Cloud9 Player Stats:\n" +
			"OXY: KD 1.21, Avg Kills 18.4, Top Agent Jett (85.7%), First Kill Rate 19.1%\n",
		"Cloud9 Agent Composition:\n" +
			"Omen: 92.9% pick rate (13 picks)\n" +
			"Role Distribution: Controller 25.0%, Duelist 25.0%\n",
		"Cloud9 Combat Metrics:\n" +
			"Trade Efficiency: 23.5%\n" +
			"Total Kills Analyzed: 2210\n" +
			"Top Clutch Players:\n" +
			"  OXY: 6/20 clutches (30.0%)\n" +
			"  v1c: 4/18 clutches (22.2%)\n" +
			"  Xeppaa: 3/15 clutches (20.0%)\n" +
			"Top Multi-Kill Players:\n" +
			"  OXY: 55 multi-kills (2K: 40, 3K: 12, 4K: 3)\n",
		"Cloud9 Opponent Record:\nvs Sentinels: 50.0% win rate (2 matches, 46 rounds)\n",
		"Cloud9 attack Scouting Report:\nCloud9 default into a late B split.",
		"Cloud9 economy Scouting Report:\nForce buys after a lost pistol.",
	}

	assert.Equal(t, want, texts(chunks))
	for _, c := range chunks {
		assert.Equal(t, "Cloud9", c.Source)
	}
}

func TestChunkTeamEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"no metrics":     `{"team_name": "Empty"}`,
		"empty metrics":  `{"team_name": "Empty", "metrics": {}, "insights": {}}`,
		"blank insights": `{"team_name": "Empty", "insights": {"a": "", "b": " \n"}}`,
		"null sections":  `{"team_name": "Empty", "metrics": {"win_rate": null, "combat_metrics": {}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, ChunkTeam(parseTeam(t, raw)))
		})
	}
}

func TestChunkTeamOmitsMissingFields(t *testing.T) {
	team := parseTeam(t, `{
		"team_name": "Sentinels",
		"metrics": {
			"side_metrics": {"attack_win_rate": 51, "defense_kd": 1.05},
			"combat_metrics": {"trade_efficiency": 20}
		}
	}`)

	chunks := ChunkTeam(team)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Sentinels Team Overview:\n"+
		"Attack Win Rate: 51%\n"+
		"Defense K/D: 1.05\n"+
		"Trade Efficiency: 20%\n", chunks[0].Text)
	assert.Equal(t, "Sentinels Combat Metrics:\nTrade Efficiency: 20%\n", chunks[1].Text)
	assert.NotContains(t, chunks[0].Text, "undefined")
	assert.NotContains(t, chunks[0].Text, "Overall Win Rate")
}

func TestChunkTeamInsightsOnly(t *testing.T) {
	team := parseTeam(t, `{"team_name": "G2", "insights": {"defense": "Stack A on Bind."}}`)

	chunks := ChunkTeam(team)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "G2 defense Scouting Report:"))
	assert.Equal(t, "G2", chunks[0].Source)
}

func TestChunkTeamDeterministic(t *testing.T) {
	team := parseTeam(t, cloud9JSON)
	assert.Equal(t, ChunkTeam(team), ChunkTeam(team))
}
