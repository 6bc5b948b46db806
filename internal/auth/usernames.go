package auth

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername rejects usernames before any remote effect: length
// bounds and the allowed character set.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, and underscores")
	}
	return nil
}

var firstNames = []string{
	"Arjun", "Aarav", "Vivaan", "Aditya", "Vihaan", "Sai", "Aryan", "Krishna",
	"Ishaan", "Shaurya", "Atharv", "Advait", "Vedant", "Kabir", "Karthik",
	"Rohan", "Rahul", "Vikram", "Amit", "Sumit", "Rohit", "Mohit", "Ravi",
	"Dev", "Raj", "Jay", "Vijay", "Sanjay", "Ajay", "Akshay", "Uday",
	"Harsh", "Aakash", "Prakash", "Ankit",
}

var surnames = []string{
	"Sharma", "Verma", "Gupta", "Agarwal", "Singh", "Kumar", "Jain", "Bansal",
	"Mittal", "Goel", "Chopra", "Kapoor", "Malhotra", "Khanna", "Arora",
	"Sethi", "Bhatia", "Anand", "Saxena", "Tiwari", "Mishra", "Pandey",
	"Joshi", "Nair", "Menon", "Reddy", "Rao", "Iyer", "Krishnan",
}

var techTerms = []string{
	"Dev", "Code", "Tech", "Digital", "Cyber", "Net", "Web", "App", "Data",
	"Cloud", "Bot", "Pro", "Ninja", "Guru", "Wizard",
}

// GenerateUsername produces a random display name suggestion in one of a
// handful of patterns. Uniqueness is the caller's concern.
func GenerateUsername(rng *rand.Rand) string {
	first := firstNames[rng.Intn(len(firstNames))]
	last := surnames[rng.Intn(len(surnames))]
	term := techTerms[rng.Intn(len(techTerms))]
	n := rng.Intn(999) + 1

	patterns := []string{
		fmt.Sprintf("%s%s%d", first, last, n),
		fmt.Sprintf("%s%s%d", first, term, n),
		fmt.Sprintf("%s_%s", first, last),
		fmt.Sprintf("%s%d", first, n),
		fmt.Sprintf("%s%s%d", term, first, n),
		fmt.Sprintf("%s%s%s", first, last, term),
	}
	return patterns[rng.Intn(len(patterns))]
}

// AvatarURL builds a deterministic avatar reference from a seed.
func AvatarURL(seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", seed)
}
