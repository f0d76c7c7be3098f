package ingest

import "fmt"

// PaperID derives the id of the paper at 1-based ordinal i of the extraction artifact
func PaperID(i int) string {
	return fmt.Sprintf("paper_%d", i)
}

// KeypointID derives the id of the keypoint at 1-based ordinal j of its paper
func KeypointID(paperID string, j int) string {
	return fmt.Sprintf("%s_kp_%d", paperID, j)
}

// ObservationID derives the id of the observation at 1-based ordinal i
func ObservationID(i int) string {
	return fmt.Sprintf("obs_%d", i)
}
