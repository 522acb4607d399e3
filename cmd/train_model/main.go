package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"voicescreen/form"
	"voicescreen/logging"
	"voicescreen/ml"
)

func main() {
	dataset := flag.String("dataset", "parkinsons.data", "UCI parkinsons CSV")
	schemaName := flag.String("schema", form.Voice9, "feature schema (voice9 or voice22)")
	modelType := flag.String("model_type", ml.ModelTypeDecisionTree, "decision_tree or logistic")
	modelPath := flag.String("model_path", "./models/parkinsons_model.json", "model output path")
	maxDepth := flag.Int("max_depth", 6, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 42, "shuffle seed")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: "info"})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	schema, err := form.Lookup(*schemaName)
	if err != nil {
		logger.Fatal("unknown schema", zap.Error(err))
	}

	features, labels, err := ml.LoadDataset(*dataset, schema.Columns(), ml.DefaultLabelColumn)
	if err != nil {
		logger.Fatal("failed to load dataset", zap.String("path", *dataset), zap.Error(err))
	}
	trainX, trainY, testX, testY := ml.SplitDataset(features, labels, *testRatio, *seed)
	logger.Info("dataset loaded",
		zap.Int("rows", len(features)),
		zap.Int("train", len(trainX)),
		zap.Int("test", len(testX)),
		zap.Int("features", schema.Len()),
	)

	model, err := train(*modelType, trainX, trainY, *maxDepth)
	if err != nil {
		logger.Fatal("failed to train model", zap.String("type", *modelType), zap.Error(err))
	}

	eval := ml.Evaluate(model, testX, testY)
	logger.Info("evaluation",
		zap.Float64("accuracy", eval.Accuracy),
		zap.Float64("precision", eval.Precision),
		zap.Float64("recall", eval.Recall),
	)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		logger.Fatal("failed to create model dir", zap.Error(err))
	}
	if err := model.Save(*modelPath); err != nil {
		logger.Fatal("failed to save model", zap.Error(err))
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}

func train(modelType string, features [][]float64, labels []int, maxDepth int) (ml.MLModel, error) {
	switch modelType {
	case ml.ModelTypeDecisionTree:
		model := &ml.DecisionTree{}
		return model, model.Train(features, labels, maxDepth)
	case ml.ModelTypeLogistic:
		model := &ml.LogisticRegression{}
		return model, model.Train(features, labels, ml.DefaultLogisticTrainOptions())
	default:
		return nil, fmt.Errorf("%w: %q cannot be trained", ml.ErrUnsupportedModel, modelType)
	}
}
