package model

// Optional は部分更新入力の三値フィールドを表す。
//
//	Set=false            : キー自体が存在しない（現在値を維持）
//	Set=true, Null=true  : 明示的なnull
//	Set=true, Null=false : 明示的な値（Value）
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some は値を持つOptionalを返す。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null は明示的なnullを表すOptionalを返す。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// HasValue はnull以外の値が指定されている場合にtrueを返す。
func (o Optional[T]) HasValue() bool {
	return o.Set && !o.Null
}
