package rules

import "github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/match"

// 2016 Stronghold: breach (8 defense crossings) and capture (8 boulders
// weakening the tower).
func season2016() Season {
	crossings := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "position1crossings", "position2crossings", "position3crossings",
			"position4crossings", "position5crossings")
	})
	boulders := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoBouldersLow", "autoBouldersHigh", "teleopBouldersLow", "teleopBouldersHigh")
	})
	return Season{
		Year: 2016,
		Stats: []Stat{
			scoreStat(30, 400),
			unitStat("crossings", crossings),
			unitStat("boulders", boulders),
		},
		Bonuses: []Bonus{
			{Name: "breach", Stat: "crossings", Threshold: 8, PlayoffPoints: 20},
			{Name: "capture", Stat: "boulders", Threshold: 8, PlayoffPoints: 25},
		},
		RankingProbs: []string{ProbKey("breach"), ProbKey("capture")},
		Ranking:      rankingFrom("autoPoints", "teleopDefensesBreached", "teleopTowerCaptured"),
		WinRP:        2,
		TieRP:        1,
	}
}

// gearsForRotors is the number of delivered gears needed to turn n rotors;
// the pre-placed reserve gear completes the first one.
var gearsForRotors = [5]float64{0, 0, 2, 6, 12}

// 2017 Steamworks: 40 kPa of pressure and all four rotors turning.
func season2017() Season {
	pressure := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoFuelPoints", "teleopFuelPoints")
	})
	gears := fromBreakdown(func(b match.Breakdown) float64 {
		return gearsForRotors[countFlags(b, "rotor1Engaged", "rotor2Engaged", "rotor3Engaged", "rotor4Engaged")]
	})
	return Season{
		Year: 2017,
		Stats: []Stat{
			scoreStat(50, 900),
			unitStat("pressure", pressure),
			unitStat("gears", gears),
		},
		Bonuses: []Bonus{
			{Name: "pressure", Stat: "pressure", Threshold: 40, PlayoffPoints: 20},
			{Name: "gears", Stat: "gears", Threshold: 12, PlayoffPoints: 100},
		},
		RankingProbs: []string{ProbKey("pressure"), ProbKey("gears")},
		Ranking:      rankingFrom("totalPoints", "kPaRankingPointAchieved", "rotorRankingPointAchieved"),
		WinRP:        2,
		TieRP:        1,
	}
}

// 2018 Power Up: auto quest (three auto runs) and face the boss (90 endgame
// points).
func season2018() Season {
	return Season{
		Year: 2018,
		Stats: []Stat{
			scoreStat(60, 900),
			unitStat("auto_run", field("autoRunPoints")),
			unitStat("endgame", field("endgamePoints")),
		},
		Bonuses: []Bonus{
			{Name: "auto_quest", Stat: "auto_run", Threshold: 15},
			{Name: "face_boss", Stat: "endgame", Threshold: 90},
		},
		RankingProbs: []string{ProbKey("auto_quest"), ProbKey("face_boss")},
		Ranking:      rankingFrom("endgamePoints", "autoQuestRankingPoint", "faceTheBossRankingPoint"),
		WinRP:        2,
		TieRP:        1,
	}
}

// 2019 Destination: Deep Space: complete rocket (12 game pieces) and HAB
// docking (15 climb points).
func season2019() Season {
	pieces := fromBreakdown(func(b match.Breakdown) float64 {
		return num(b, "hatchPanelPoints")/2 + num(b, "cargoPoints")/3
	})
	return Season{
		Year: 2019,
		Stats: []Stat{
			scoreStat(25, 300),
			unitStat("rocket_pieces", pieces),
			unitStat("hab_climb", field("habClimbPoints")),
		},
		Bonuses: []Bonus{
			{Name: "rocket", Stat: "rocket_pieces", Threshold: 12},
			{Name: "hab_dock", Stat: "hab_climb", Threshold: 15},
		},
		RankingProbs: []string{ProbKey("rocket"), ProbKey("hab_dock")},
		Ranking:      rankingFrom("cargoPoints", "completeRocketRankingPoint", "habDockingRankingPoint"),
		WinRP:        2,
		TieRP:        1,
	}
}

// 2020 Infinite Recharge: the energized RP needs stage 3 capacity (49 power
// cells) which is only reachable once rotation control (stage 2) is done.
func season2020() Season {
	cells := fromBreakdown(func(b match.Breakdown) float64 {
		return sum(b, "autoCellsBottom", "autoCellsOuter", "autoCellsInner",
			"teleopCellsBottom", "teleopCellsOuter", "teleopCellsInner")
	})
	rotation := fromBreakdown(func(b match.Breakdown) float64 {
		if flag(b, "stage2Activated") {
			return 1
		}
		return 0
	})
	return Season{
		Year: 2020,
		Stats: []Stat{
			scoreStat(25, 300),
			unitStat("power_cells", cells),
			unitStat("rotation", rotation),
			unitStat("endgame", field("endgamePoints")),
		},
		Bonuses: []Bonus{
			{Name: "power_cells", Stat: "power_cells", Threshold: 49},
			{Name: "rotation", Stat: "rotation", Threshold: 0.5},
			{Name: "shield_operational", Stat: "endgame", Threshold: 65},
		},
		Derive: func(probs map[string]float64) {
			probs[ProbKey("shield_energized")] = probs[ProbKey("power_cells")] * probs[ProbKey("rotation")]
		},
		RankingProbs: []string{ProbKey("shield_energized"), ProbKey("shield_operational")},
		Ranking:      rankingFrom("autoPoints", "shieldEnergizedRankingPoint", "shieldOperationalRankingPoint"),
		WinRP:        2,
		TieRP:        1,
	}
}
