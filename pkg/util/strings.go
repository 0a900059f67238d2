package util

// RemoveDuplicateStrings keeps the first occurrence of every non-empty string, preserving order
func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	list := []string{}

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

func Pluralise(count int, word string) string {
	if count == 1 {
		return word
	}

	return word + "s"
}
