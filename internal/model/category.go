package model

import (
	"errors"
	"slices"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

var riskLevelList = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}

func ToRiskLevel(s string) (RiskLevel, error) {
	if slices.Contains(riskLevelList, RiskLevel(s)) {
		return RiskLevel(s), nil
	}
	return "", errors.New("unknown risk level: " + s)
}

type InvestmentGoal string

const (
	ShortTerm  InvestmentGoal = "SHORT_TERM"
	MediumTerm InvestmentGoal = "MEDIUM_TERM"
	LongTerm   InvestmentGoal = "LONG_TERM"
)

var investmentGoalList = []InvestmentGoal{ShortTerm, MediumTerm, LongTerm}

func ToInvestmentGoal(s string) (InvestmentGoal, error) {
	if slices.Contains(investmentGoalList, InvestmentGoal(s)) {
		return InvestmentGoal(s), nil
	}
	return "", errors.New("unknown investment goal: " + s)
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
