package domain

// AccessKey - одноразовый (или с ограниченным числом использований) ключ
// доступа, обмениваемый на bearer-токен. Инвариант: UsedCount <= UsageLimit.
type AccessKey struct {
	Key         string `json:"AccessKey"`
	KeyType     Role   `json:"KeyType"`
	LiveEventID string `json:"LiveEventId"`
	UsedCount   int    `json:"Used"`
	UsageLimit  int    `json:"Limit"`
}

func (k *AccessKey) HasRemainingUses() bool {
	return k.UsedCount+1 <= k.UsageLimit
}
