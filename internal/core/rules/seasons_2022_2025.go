package rules

import "github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"

// 2022 Rapid React: cargo bonus (20 cargo) and hangar bonus (16 points).
func season2022() Season {
	cargo := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoCargoTotal", "teleopCargoTotal")
	})
	return Season{
		Year: 2022,
		Stats: []Stat{
			scoreStat(25, 300),
			unitStat("cargo", cargo),
			unitStat("hangar", field("endgamePoints")),
		},
		Bonuses: []Bonus{
			{Name: "cargo", Stat: "cargo", Threshold: 20},
			{Name: "hangar", Stat: "hangar", Threshold: 16},
		},
		RankingProbs: []string{ProbKey("cargo"), ProbKey("hangar")},
		Ranking:      rankingFrom("endgamePoints", "cargoBonusRankingPoint", "hangarBonusRankingPoint"),
		WinRP:        2,
		TieRP:        1,
	}
}

// 2023 Charged Up: sustainability (5 links) and activation (26 charge
// station points).
func season2023() Season {
	links := fromBreakdown(func(b match.Breakdown) float64 { return listLen(b, "links") })
	charge := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoChargeStationPoints", "endGameChargeStationPoints")
	})
	return Season{
		Year: 2023,
		Stats: []Stat{
			scoreStat(30, 400),
			unitStat("links", links),
			unitStat("charge", charge),
		},
		Bonuses: []Bonus{
			{Name: "sustainability", Stat: "links", Threshold: 5},
			{Name: "activation", Stat: "charge", Threshold: 26},
		},
		RankingProbs: []string{ProbKey("sustainability"), ProbKey("activation")},
		Ranking:      rankingFrom("totalPoints", "sustainabilityBonusAchieved", "activationBonusAchieved"),
		WinRP:        2,
		TieRP:        1,
	}
}

// 2024 Crescendo: melody (18 notes) and ensemble (10 stage points).
func season2024() Season {
	notes := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoAmpNoteCount", "autoSpeakerNoteCount", "teleopAmpNoteCount",
			"teleopSpeakerNoteCount", "teleopSpeakerNoteAmplifiedCount")
	})
	return Season{
		Year: 2024,
		Stats: []Stat{
			scoreStat(25, 300),
			unitStat("notes", notes),
			unitStat("stage", field("endGameTotalStagePoints")),
		},
		Bonuses: []Bonus{
			{Name: "melody", Stat: "notes", Threshold: 18},
			{Name: "ensemble", Stat: "stage", Threshold: 10},
		},
		RankingProbs: []string{ProbKey("melody"), ProbKey("ensemble")},
		Ranking:      rankingFrom("totalPoints", "melodyBonusAchieved", "ensembleBonusAchieved"),
		WinRP:        2,
		TieRP:        1,
	}
}

// 2025 Reefscape: three bonus RPs and three points for a win. The auto RP
// needs every robot to leave and at least one coral scored in auto.
func season2025() Season {
	coral := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoCoralCount", "teleopCoralCount")
	})
	return Season{
		Year: 2025,
		Stats: []Stat{
			scoreStat(25, 300),
			unitStat("leave", field("autoMobilityPoints")),
			unitStat("auto_coral", field("autoCoralCount")),
			unitStat("coral", coral),
			unitStat("barge", field("endGameBargePoints")),
		},
		Bonuses: []Bonus{
			{Name: "leave", Stat: "leave", Threshold: 9},
			{Name: "auto_coral", Stat: "auto_coral", Threshold: 1},
			{Name: "coral", Stat: "coral", Threshold: 20},
			{Name: "barge", Stat: "barge", Threshold: 14},
		},
		Derive: func(probs map[string]float64) {
			probs[ProbKey("auto")] = probs[ProbKey("leave")] * probs[ProbKey("auto_coral")]
		},
		RankingProbs: []string{ProbKey("auto"), ProbKey("coral"), ProbKey("barge")},
		Ranking:      rankingFrom("totalPoints", "autoBonusAchieved", "coralBonusAchieved", "bargeBonusAchieved"),
		WinRP:        3,
		TieRP:        1,
	}
}
