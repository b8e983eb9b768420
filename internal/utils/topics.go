package utils

import (
	"encoding/csv"
	"log"
	"os"
)

// =============================================================================
// TOPIC TABLE
// =============================================================================

// builtinTopics ships with the binary so a fresh deployment needs no word
// file. Rows are category,keyword.
var builtinTopics = []Topic{
	{"food", "pizza"},
	{"food", "sushi"},
	{"food", "ramen"},
	{"food", "taco"},
	{"food", "pancake"},
	{"food", "curry"},
	{"animal", "penguin"},
	{"animal", "giraffe"},
	{"animal", "octopus"},
	{"animal", "hedgehog"},
	{"animal", "dolphin"},
	{"animal", "kangaroo"},
	{"place", "airport"},
	{"place", "library"},
	{"place", "hospital"},
	{"place", "beach"},
	{"place", "subway"},
	{"place", "stadium"},
	{"job", "firefighter"},
	{"job", "pilot"},
	{"job", "barista"},
	{"job", "dentist"},
	{"job", "magician"},
	{"job", "astronaut"},
	{"sport", "bowling"},
	{"sport", "archery"},
	{"sport", "fencing"},
	{"sport", "surfing"},
	{"sport", "badminton"},
	{"sport", "curling"},
	{"object", "umbrella"},
	{"object", "telescope"},
	{"object", "typewriter"},
	{"object", "compass"},
	{"object", "lantern"},
	{"object", "harmonica"},
	{"movie", "titanic"},
	{"movie", "inception"},
	{"movie", "frozen"},
	{"movie", "jaws"},
	{"movie", "up"},
	{"movie", "parasite"},
}

// ReadTopicsCSV loads category,keyword rows from a file. Malformed rows are
// skipped with a log line rather than failing the whole table.
func ReadTopicsCSV(filePath string) []Topic {
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Unable to read input file "+filePath, err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	records, err := csvReader.ReadAll()
	if err != nil {
		log.Fatal("Unable to parse file as CSV for "+filePath, err)
	}

	var topics []Topic
	for _, record := range records {
		if len(record) < 2 || record[0] == "" || record[1] == "" {
			log.Println("Skipping invalid record: ", record)
			continue
		}
		topics = append(topics, Topic{Category: record[0], Keyword: record[1]})
	}
	return topics
}
