// File: utils/constants.go
package utils

import "time"

// OrderCachePrefix is the prefix used for Redis payment order keys.
const OrderCachePrefix = "order:"

// OrderLockPrefix guards order creation for one booking.
const OrderLockPrefix = "order-lock:"

// OrderLockTTL bounds how long a crashed order creation can block retries.
const OrderLockTTL = 15 * time.Second
