package nlparse

import "time"

// Keys are folded (see fold). Adding a language means adding rows here.
var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,

	"thu hai": time.Monday, "thu 2": time.Monday, "t2": time.Monday,
	"thu ba": time.Tuesday, "thu 3": time.Tuesday, "t3": time.Tuesday,
	"thu tu": time.Wednesday, "thu 4": time.Wednesday, "t4": time.Wednesday,
	"thu nam": time.Thursday, "thu 5": time.Thursday, "t5": time.Thursday,
	"thu sau": time.Friday, "thu 6": time.Friday, "t6": time.Friday,
	"thu bay": time.Saturday, "thu 7": time.Saturday, "t7": time.Saturday,
	"chu nhat": time.Sunday, "cn": time.Sunday,
}

var relativeDays = map[string]int{
	"today": 0, "hom nay": 0, "bua nay": 0,
	"tomorrow": 1, "ngay mai": 1, "mai": 1,
	"day after tomorrow": 2, "the day after tomorrow": 2,
	"ngay kia": 2, "ngay mot": 2, "mot": 2,
}

type weekRef int

const (
	weekNone weekRef = iota
	weekThis
	weekNext
)

type qualifier struct {
	text string
	ref  weekRef
}

// Longest first so "this week" wins over "this".
var weekPrefixes = []qualifier{
	{"this week ", weekThis},
	{"next week ", weekNext},
	{"this ", weekThis},
	{"next ", weekNext},
}

var weekSuffixes = []qualifier{
	{" this week", weekThis},
	{" next week", weekNext},
	{" tuan nay", weekThis},
	{" tuan sau", weekNext},
	{" tuan toi", weekNext},
}

type period int

const (
	periodNone period = iota
	periodAM
	periodPM
	periodNoon
	periodNight
)

var periods = map[string]period{
	"am": periodAM, "a.m.": periodAM, "a.m": periodAM,
	"sang": periodAM, "buoi sang": periodAM,
	"morning": periodAM, "in the morning": periodAM,

	"pm": periodPM, "p.m.": periodPM, "p.m": periodPM,
	"chieu": periodPM, "buoi chieu": periodPM, "toi": periodPM, "buoi toi": periodPM,
	"afternoon": periodPM, "in the afternoon": periodPM,
	"evening": periodPM, "in the evening": periodPM,

	"trua": periodNoon, "buoi trua": periodNoon,

	"dem": periodNight, "night": periodNight, "at night": periodNight,
}

var namedTimes = map[string]int{
	"noon": 12 * 60, "midday": 12 * 60, "midnight": 0,
}
