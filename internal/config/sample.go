package config

// SampleConfig returns a fully documented configuration file
func SampleConfig() string {
	return `# recsvd configuration
version: "1.0"

logging:
  # trace | debug | info | warn | error
  level: info
  # console | json
  format: console
  # log file for the pipeline and CLI (empty disables the file)
  file_main: logs/main.log
  # log file for the predictor (empty disables the file)
  file_predictor: logs/predictor.log

recommender:
  # number of items to recommend
  top_n: 5
  # reject interaction vectors that contain values other than 0 and 1
  strict_input: false

data:
  # user x item matrix, first column holds the user id
  interactions_path: data/processed/users_matriz_items.csv
  # JSON object mapping item id to display name
  products: data/processed/productos.json

model:
  # trained factorization artifact
  path: models/svd_model.gob.gz
  # randomized | exact
  algorithm: randomized
  n_components: 443
  n_iter: 7
  n_oversamples: 13
  random_state: 42

output:
  # directory for recomendacion_user_<id>_<timestamp>.json records
  dir: recomendaciones
  # text | json | markdown | csv
  default_format: text
  # auto | always | never
  color_mode: auto

metrics:
  # Prometheus textfile written after every run (empty disables export)
  textfile: ""
`
}

// MinimalSampleConfig returns a compact configuration with essential settings
func MinimalSampleConfig() string {
	return `version: "1.0"
recommender:
  top_n: 5
data:
  interactions_path: data/processed/users_matriz_items.csv
  products: data/processed/productos.json
model:
  path: models/svd_model.gob.gz
`
}
