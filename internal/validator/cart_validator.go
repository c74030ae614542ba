package validator

import "errors"

// 数量が不正
var ErrInvalidQuantity = errors.New("invalid quantity")

// 1回の操作で扱う数量の上限。在庫比較の加算で桁あふれしない範囲に抑える。
const MaxQuantity = 1_000_000

// ValidateQuantity は数量が正の整数であることを確認する。
// 0・負数・上限超えは拒否。クランプはしない（呼び出し側がエラーを返す）。
func ValidateQuantity(q int64) error {
	if q < 1 || q > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}
