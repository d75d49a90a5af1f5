package core

import (
	"time"
	_ "time/tzdata" // Asia/Shanghai on hosts without a zoneinfo database
)

// Shanghai is the exchange time zone of the A-share market.
var Shanghai = loadShanghai()

func loadShanghai() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}
