// Package churn trains and serves customer churn models.
//
// The module is a batch pipeline: customer records are loaded from local
// files or object storage, split into stratified train and test sets,
// standardized with statistics frozen at fit time, and used to fit a
// random forest, gradient boosting or logistic regression classifier. The
// fitted model and its scaling statistics are saved together as one bundle
// so later inference prepares data exactly as training did.
//
// # Architecture
//
//   - pkg/dataset: columnar in-memory tables, CSV and Arrow IPC readers,
//     stratified splitting.
//   - pkg/features: the feature transformer (fit once, transform many).
//   - pkg/predict: the validation gate that rejects missing and infinite
//     values before any model sees a batch.
//   - pkg/classifier: the model family behind one Fit/Predict surface.
//   - pkg/evaluation: classification metrics, ROC-AUC, the business
//     summary and the experiment decision.
//   - pkg/modelstore, pkg/compression: compressed model bundles.
//   - pkg/source: file, s3:// and gs:// inputs.
//   - pkg/runstore: a run ledger in SQLite or PostgreSQL.
//   - pkg/metrics, pkg/observability, pkg/logger: Prometheus, OpenTelemetry
//     tracing and zap logging.
//   - internal/pipeline: the stages wired together; cmd/churn: the CLI.
//
// # Quick Start
//
//	churn generate -o data/churn.csv
//	churn train -c churn.yaml
//	churn predict -i data/new_customers.csv -o scored.csv
//	churn experiment
//	churn runs
package churn
