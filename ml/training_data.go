package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// DefaultLabelColumn is the target column of the UCI Parkinson's voice dataset.
const DefaultLabelColumn = "status"

// LoadDataset reads a CSV file with a header row and returns the named columns,
// in the given order, as feature vectors along with the integer label column.
func LoadDataset(path string, columns []string, labelColumn string) ([][]float64, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return ReadDataset(file, columns, labelColumn)
}

func ReadDataset(r io.Reader, columns []string, labelColumn string) ([][]float64, []int, error) {
	if len(columns) == 0 {
		return nil, nil, errors.New("no feature columns requested")
	}
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	featureIdx := make([]int, len(columns))
	for i, name := range columns {
		idx, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("column %q not found", name)
		}
		featureIdx[i] = idx
	}
	labelIdx, ok := index[labelColumn]
	if !ok {
		return nil, nil, fmt.Errorf("label column %q not found", labelColumn)
	}

	var features [][]float64
	var labels []int
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(featureIdx))
		for i, idx := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d column %q: %w", line, columns[i], err)
			}
			row[i] = v
		}
		label, err := strconv.Atoi(strings.TrimSpace(record[labelIdx]))
		if err != nil {
			return nil, nil, fmt.Errorf("line %d label: %w", line, err)
		}
		features = append(features, row)
		labels = append(labels, label)
	}
	if len(features) == 0 {
		return nil, nil, errors.New("dataset is empty")
	}
	return features, labels, nil
}

func SplitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

type Evaluation struct {
	Accuracy  float64
	Precision float64
	Recall    float64
}

// Evaluate scores the model on a held-out set, treating label 1 as positive.
func Evaluate(model Classifier, testX [][]float64, testY []int) Evaluation {
	var eval Evaluation
	if len(testX) == 0 {
		return eval
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, feature := range testX {
		label, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	eval.Accuracy = float64(correct) / float64(len(testX))
	if predictedPositive > 0 {
		eval.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		eval.Recall = float64(truePositive) / float64(actualPositive)
	}
	return eval
}
