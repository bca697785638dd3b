package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Jalaali conversion based on the Borkowski break-year table.

var jalaaliBreaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// JalaaliDate is a date in the Persian solar calendar.
type JalaaliDate struct {
	Year  int
	Month int
	Day   int
}

// String formats the date as jYYYY/jMM/jDD.
func (d JalaaliDate) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// MonthString formats the date as jYYYY/jMM.
func (d JalaaliDate) MonthString() string {
	return fmt.Sprintf("%04d/%02d", d.Year, d.Month)
}

// ToJalaali converts the calendar date of t (in its own location) to Jalaali.
func ToJalaali(t time.Time) JalaaliDate {
	jy, jm, jd := d2j(g2d(t.Year(), int(t.Month()), t.Day()))
	return JalaaliDate{Year: jy, Month: jm, Day: jd}
}

// FromJalaali returns midnight of the given Jalaali date in loc.
func FromJalaali(jy, jm, jd int, loc *time.Location) time.Time {
	gy, gm, gd := d2g(j2d(jy, jm, jd))
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, loc)
}

// FormatJalaali renders t as jYYYY/jMM/jDD.
func FormatJalaali(t time.Time) string {
	return ToJalaali(t).String()
}

// FormatJalaaliMonth renders t as jYYYY/jMM.
func FormatJalaaliMonth(t time.Time) string {
	return ToJalaali(t).MonthString()
}

// IsJalaaliLeap reports whether jy has 30 days in Esfand.
func IsJalaaliLeap(jy int) bool {
	leap, _, _ := jalCal(jy)
	return leap == 0
}

// JalaaliMonthLength returns the number of days of a Jalaali month.
func JalaaliMonthLength(jy, jm int) int {
	switch {
	case jm <= 6:
		return 31
	case jm <= 11:
		return 30
	case IsJalaaliLeap(jy):
		return 30
	default:
		return 29
	}
}

// ParseDate accepts "1403/12/29" style Jalaali dates and "2025-03-19" style Gregorian
// dates, with Persian or Latin digits. Years below 1700 are treated as Jalaali.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(NormalizeDigits(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("parse date: empty")
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("parse date %q: want year/month/day", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		nums[i] = n
	}
	y, m, d := nums[0], nums[1], nums[2]
	if m < 1 || m > 12 || d < 1 {
		return time.Time{}, fmt.Errorf("parse date %q: out of range", s)
	}
	if y < 1700 {
		if d > JalaaliMonthLength(y, m) {
			return time.Time{}, fmt.Errorf("parse date %q: out of range", s)
		}
		return FromJalaali(y, m, d, loc), nil
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("parse date %q: out of range", s)
	}
	return t, nil
}

// jalCal returns the leap status of jy (0 = leap), the Gregorian year of its first day
// and the March day on which it starts.
func jalCal(jy int) (leap, gy, march int) {
	gy = jy + 621
	leapJ := -14
	jp := jalaaliBreaks[0]
	jump := 0
	for i := 1; i < len(jalaaliBreaks); i++ {
		jm := jalaaliBreaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + (jump%33)/4
		jp = jm
	}
	n := jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG
	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap = ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return leap, gy, march
}

func g2d(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 + (153*((gm+9)%12)+2)/5 + gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

func d2g(jdn int) (gy, gm, gd int) {
	j := 4*jdn + 139361631
	j += (4*jdn+183187720)/146097*3/4*4 - 3908
	i := (j%1461)/4*5 + 308
	gd = (i%153)/5 + 1
	gm = (i/153)%12 + 1
	gy = j/1461 - 100100 + (8-gm)/6
	return gy, gm, gd
}

func j2d(jy, jm, jd int) int {
	_, gy, march := jalCal(jy)
	return g2d(gy, 3, march) + (jm-1)*31 - jm/7*(jm-7) + jd - 1
}

func d2j(jdn int) (jy, jm, jd int) {
	gy, _, _ := d2g(jdn)
	jy = gy - 621
	leap, _, march := jalCal(jy)
	k := jdn - g2d(gy, 3, march)
	if k >= 0 {
		if k <= 185 {
			return jy, 1 + k/31, k%31 + 1
		}
		k -= 186
	} else {
		jy--
		k += 179
		if leap == 1 {
			k++
		}
	}
	return jy, 7 + k/30, k%30 + 1
}
