//go:build navdebug

package navgrid

const debugAsserts = true
