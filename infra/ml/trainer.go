package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	coremetrics "github.com/railops/induction/core/metrics"
	"github.com/railops/induction/core/model"
	"github.com/railops/induction/core/tasks"
	"github.com/railops/induction/infra/logger"
)

// minTrainingRecords is the hard precondition for any training run.
const minTrainingRecords = 20

// randomSeed fixes shuffling so evaluation runs are reproducible.
const randomSeed = 42

// OutcomeSource reads the historical-outcomes training table.
type OutcomeSource interface {
	HistoricalOutcomes(ctx context.Context) ([]model.HistoricalOutcome, error)
}

// Trainer fits and evaluates the failure classifier off the request-serving
// path, reporting coarse progress checkpoints to the task registry. A run
// always terminates its registry entry: success carries the result payload,
// failure carries an "error" key.
type Trainer struct {
	outcomes  OutcomeSource
	artifacts ArtifactStore
	predictor *Predictor
	registry  *tasks.Registry
	sink      coremetrics.TrainingRecorder
	log       logger.Logger
}

// NewTrainer wires a Trainer. The sink may be nil.
func NewTrainer(outcomes OutcomeSource, artifacts ArtifactStore, predictor *Predictor, registry *tasks.Registry, sink coremetrics.TrainingRecorder, log logger.Logger) *Trainer {
	return &Trainer{
		outcomes:  outcomes,
		artifacts: artifacts,
		predictor: predictor,
		registry:  registry,
		sink:      sink,
		log:       log,
	}
}

// Train fits the model on all available data without evaluation and swaps it
// into the predictor.
func (t *Trainer) Train(ctx context.Context, taskID string) {
	start := time.Now()
	err := t.train(ctx, taskID)
	if err != nil {
		t.fail(taskID, err)
	}
	t.record("train", taskID, err == nil, time.Since(start))
}

func (t *Trainer) train(ctx context.Context, taskID string) error {
	t.registry.Update(taskID, "Fetching training data...", 10, nil)
	x, y, err := t.trainingMatrix(ctx)
	if err != nil {
		return err
	}

	t.registry.Update(taskID, "Preparing data...", 20, nil)
	weights := classWeights(y)

	t.registry.Update(taskID, "Scaling features...", 30, nil)
	scaler := FitScaler(x)
	scaled := scaler.Transform(x)

	t.registry.Update(taskID, "Training model...", 60, nil)
	fitted := fitLogistic(scaled, y, weights, defaultTrainParams())

	t.registry.Update(taskID, "Saving model and scaler...", 90, nil)
	if err := t.persist(ctx, fitted, scaler); err != nil {
		return err
	}

	t.registry.Update(taskID, "Completed", 100, map[string]any{"message": "Model trained successfully"})
	return nil
}

// TrainAndEvaluate holds out a stratified test split, reports performance
// metrics at the best F1 threshold, then retrains on all data and swaps the
// final model into the predictor.
func (t *Trainer) TrainAndEvaluate(ctx context.Context, taskID string) {
	start := time.Now()
	err := t.trainAndEvaluate(ctx, taskID)
	if err != nil {
		t.fail(taskID, err)
	}
	t.record("evaluate", taskID, err == nil, time.Since(start))
}

func (t *Trainer) trainAndEvaluate(ctx context.Context, taskID string) error {
	t.registry.Update(taskID, "Fetching historical data...", 10, nil)
	x, y, err := t.trainingMatrix(ctx)
	if err != nil {
		return err
	}

	t.registry.Update(taskID, "Preparing data with feature engineering...", 20, nil)
	trainIdx, testIdx := stratifiedSplit(y, 0.2)
	xTrain, yTrain := subset(x, y, trainIdx)
	xTest, yTest := subset(x, y, testIdx)

	t.registry.Update(taskID, "Scaling features...", 30, nil)
	scaler := FitScaler(xTrain)
	scaledTrain := scaler.Transform(xTrain)
	scaledTest := scaler.Transform(xTest)

	t.registry.Update(taskID, "Training evaluation model...", 60, nil)
	evalModel := fitLogistic(scaledTrain, yTrain, classWeights(yTrain), defaultTrainParams())

	t.registry.Update(taskID, "Calculating performance scores...", 80, nil)
	probs := make([]float64, len(yTest))
	rows, _ := scaledTest.Dims()
	for r := 0; r < rows; r++ {
		probs[r] = evalModel.PredictProba(scaledTest.RawRowView(r))
	}
	threshold, _ := bestF1Threshold(probs, yTest)
	scores := scoreAtThreshold(probs, yTest, threshold)
	t.log.Infof("evaluation done: f1=%.3f threshold=%.2f over %d test rows", scores["f1_score"], threshold, len(yTest))

	t.registry.Update(taskID, "Retraining final model on all data...", 90, nil)
	finalScaler := FitScaler(x)
	finalModel := fitLogistic(finalScaler.Transform(x), y, classWeights(y), defaultTrainParams())
	if err := t.persist(ctx, finalModel, finalScaler); err != nil {
		return err
	}

	t.registry.Update(taskID, "Completed", 100, scores)
	return nil
}

// trainingMatrix loads the historical outcomes and derives the feature
// matrix. Fewer than minTrainingRecords rows is a hard precondition failure.
func (t *Trainer) trainingMatrix(ctx context.Context) (*mat.Dense, []float64, error) {
	rows, err := t.outcomes.HistoricalOutcomes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load training data: %w", err)
	}
	if len(rows) < minTrainingRecords {
		return nil, nil, fmt.Errorf("not enough data for training (minimum %d records needed)", minTrainingRecords)
	}
	t.log.Infof("loaded %d training records", len(rows))

	x := mat.NewDense(len(rows), FeatureCount, nil)
	y := make([]float64, len(rows))
	for i, row := range rows {
		x.SetRow(i, Features(row.MileageAtEvent, row.DaysSinceLastMaint))
		if row.FailureOccurred {
			y[i] = 1
		}
	}
	return x, y, nil
}

func (t *Trainer) persist(ctx context.Context, m *LogisticModel, s *Scaler) error {
	modelBlob, err := encodeArtifact(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	scalerBlob, err := encodeArtifact(s)
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	if err := t.artifacts.SaveArtifact(ctx, ModelArtifact, modelBlob); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := t.artifacts.SaveArtifact(ctx, ScalerArtifact, scalerBlob); err != nil {
		return fmt.Errorf("save scaler: %w", err)
	}
	if t.predictor != nil {
		if err := t.predictor.Reload(ctx); err != nil {
			return fmt.Errorf("reload predictor: %w", err)
		}
	}
	return nil
}

func (t *Trainer) fail(taskID string, err error) {
	t.log.Errorf("task %s failed: %v", taskID, err)
	t.registry.Update(taskID, "Error: "+err.Error(), 100, map[string]any{"error": err.Error()})
}

func (t *Trainer) record(kind, taskID string, success bool, d time.Duration) {
	if t.sink == nil {
		return
	}
	ev := coremetrics.TrainingEvent{TaskID: taskID, Kind: kind, Success: success, Duration: d, Time: time.Now()}
	if err := t.sink.RecordTraining(ev); err != nil {
		t.log.Warnf("record training event: %v", err)
	}
}

// classWeights compensates class imbalance by boosting positive rows with
// twice the negative-to-positive ratio.
func classWeights(y []float64) []float64 {
	var pos float64
	for _, v := range y {
		pos += v
	}
	neg := float64(len(y)) - pos
	posWeight := 1.0
	if pos > 0 {
		posWeight = neg / pos * 2
	}
	w := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			w[i] = posWeight
		} else {
			w[i] = 1
		}
	}
	return w
}

// stratifiedSplit shuffles positives and negatives independently so the test
// fraction keeps the class distribution.
func stratifiedSplit(y []float64, testFrac float64) (trainIdx, testIdx []int) {
	rng := rand.New(rand.NewSource(randomSeed))
	var pos, neg []int
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	split := func(idx []int) ([]int, []int) {
		n := int(math.Round(float64(len(idx)) * testFrac))
		if n == 0 && len(idx) > 1 {
			n = 1
		}
		return idx[n:], idx[:n]
	}
	posTrain, posTest := split(pos)
	negTrain, negTest := split(neg)
	return append(posTrain, negTrain...), append(posTest, negTest...)
}

func subset(x *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, cols := x.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	labels := make([]float64, len(idx))
	for i, j := range idx {
		out.SetRow(i, x.RawRowView(j))
		labels[i] = y[j]
	}
	return out, labels
}

// bestF1Threshold sweeps decision thresholds and keeps the one maximising F1.
func bestF1Threshold(probs, y []float64) (float64, float64) {
	best, bestF1 := 0.5, 0.0
	for th := 0.10; th < 0.90; th += 0.05 {
		_, _, f1 := precisionRecallF1(probs, y, th)
		if f1 > bestF1 {
			bestF1, best = f1, th
		}
	}
	return best, bestF1
}

func precisionRecallF1(probs, y []float64, threshold float64) (precision, recall, f1 float64) {
	tp, fp, fn := confusionCounts(probs, y, threshold)
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

func confusionCounts(probs, y []float64, threshold float64) (tp, fp, fn int) {
	for i, p := range probs {
		predicted := p >= threshold
		actual := y[i] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}
	return tp, fp, fn
}

// scoreAtThreshold builds the metrics payload reported by an evaluation run.
func scoreAtThreshold(probs, y []float64, threshold float64) map[string]any {
	tp, fp, fn := confusionCounts(probs, y, threshold)
	tn := len(y) - tp - fp - fn
	precision, recall, f1 := precisionRecallF1(probs, y, threshold)
	accuracy := 0.0
	if len(y) > 0 {
		accuracy = float64(tp+tn) / float64(len(y))
	}
	return map[string]any{
		"records_used_for_test": len(y),
		"accuracy":              round3(accuracy),
		"precision":             round3(precision),
		"recall":                round3(recall),
		"f1_score":              round3(f1),
		"threshold_used":        math.Round(threshold*100) / 100,
		"confusion_matrix":      [][]int{{tn, fp}, {fn, tp}},
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
