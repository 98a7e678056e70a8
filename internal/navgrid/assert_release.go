//go:build !navdebug

package navgrid

// debugAsserts включает внутренние проверки инвариантов (сборка с -tags navdebug)
const debugAsserts = false
