package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Embedder は学習データそのものを低次元に埋め込む推定器のインターフェース。
// t-SNEのように未知データへのTransformを持たないものが対象。
type Embedder interface {
	// FitTransformContext は埋め込みを学習し、n_samples × n_components の座標を返す
	FitTransformContext(ctx context.Context, X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}
