//go:build !race

package sessions

func passwordHashCost() int {
	return 14
}
