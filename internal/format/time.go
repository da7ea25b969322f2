package format

import (
	"time"
	_ "time/tzdata"

	ptime "github.com/yaa110/go-persian-calendar"
)

var tehran = loadTehran()

func loadTehran() *time.Location {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		return time.FixedZone("IRST", 3*3600+1800)
	}
	return loc
}

// InTehran converts t to Iran time.
func InTehran(t time.Time) time.Time {
	return t.In(tehran)
}

// Timestamp renders t in Iran time, as a Jalali date for "fa".
func Timestamp(t time.Time, lang string) string {
	local := InTehran(t)
	if lang == LangFa {
		return PersianDigits(ptime.New(local).Format("yyyy/MM/dd HH:mm"))
	}
	return local.Format("2006-01-02 15:04")
}

// LocalUnit is the display name of the toman.
func LocalUnit(lang string) string {
	if lang == LangFa {
		return "تومان"
	}
	return "Toman"
}
