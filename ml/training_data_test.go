package ml

import (
	"strings"
	"testing"
)

const sampleDataset = `name,MDVP:Fo(Hz),HNR,status
phon_R01_S01_1,119.992,21.033,1
phon_R01_S01_2,122.400,19.085,1
phon_R01_S50_1,197.076,26.775,0
phon_R01_S50_2,199.228,30.940,0
phon_R01_S50_3,198.383,30.775,0
`

func TestReadDatasetSelectsColumnsInOrder(t *testing.T) {
	features, labels, err := ReadDataset(strings.NewReader(sampleDataset), []string{"HNR", "MDVP:Fo(Hz)"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 5 || len(labels) != 5 {
		t.Fatalf("expected 5 rows, got %d/%d", len(features), len(labels))
	}
	if features[0][0] != 21.033 || features[0][1] != 119.992 {
		t.Fatalf("columns out of order: %v", features[0])
	}
	if labels[0] != 1 || labels[4] != 0 {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestReadDatasetMissingColumn(t *testing.T) {
	if _, _, err := ReadDataset(strings.NewReader(sampleDataset), []string{"PPE"}, ""); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestSplitAndEvaluate(t *testing.T) {
	features, labels, err := ReadDataset(strings.NewReader(sampleDataset), []string{"MDVP:Fo(Hz)"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trainX, trainY, testX, testY := SplitDataset(features, labels, 0.4, 7)
	if len(trainX)+len(testX) != len(features) || len(trainY)+len(testY) != len(labels) {
		t.Fatal("split lost rows")
	}

	eval := Evaluate(&ThresholdModel{FeatureIdx: 0, Threshold: -150}, features, labels)
	if eval.Recall != 1 {
		t.Fatalf("everything positive should give recall 1, got %f", eval.Recall)
	}
	if eval.Accuracy != 0.4 {
		t.Fatalf("expected accuracy 0.4, got %f", eval.Accuracy)
	}
}
