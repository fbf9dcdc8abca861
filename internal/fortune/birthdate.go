package fortune

import "strings"

// BirthDate — разобранная дата рождения. Месяц и день без ведущего нуля.
type BirthDate struct {
	Year  string
	Month string
	Day   string
}

// ParseBirthDate разбирает строку вида YYYY-MM-DD.
func ParseBirthDate(birthDate string) (BirthDate, bool) {
	parts := strings.Split(birthDate, "-")
	if len(parts) != 3 {
		return BirthDate{}, false
	}
	for _, p := range parts {
		if p == "" {
			return BirthDate{}, false
		}
	}

	return BirthDate{
		Year:  parts[0],
		Month: stripLeadingZero(parts[1]),
		Day:   stripLeadingZero(parts[2]),
	}, true
}

func stripLeadingZero(s string) string {
	if len(s) > 1 && s[0] == '0' {
		return s[1:]
	}
	return s
}

var (
	heavenlyStems = [10]string{"갑", "을", "병", "정", "무", "기", "경", "신", "임", "계"}
	earthlyBranch = [12]string{"자", "축", "인", "묘", "진", "사", "오", "미", "신", "유", "술", "해"}
)

// YearPillar возвращает небесный ствол и земную ветвь года (연주) по шестидесятеричному циклу.
// Граница года — 1 января, без учёта 입춘.
func YearPillar(year int) (stem, branch string) {
	i := (year - 4) % 60
	if i < 0 {
		i += 60
	}
	return heavenlyStems[i%10], earthlyBranch[i%12]
}
