package domain

import "time"

// Now is the clock used to stamp sessions and decision records. Tests may replace it.
var Now = time.Now
