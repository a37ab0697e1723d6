//go:build unix && !linux

package region

const populateFlag = 0
