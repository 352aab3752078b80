package model

// Computer は管理対象のコンピューターを表す。
// 日付はYYYY-MM-DD形式の文字列で、未設定の場合はnil。
type Computer struct {
	ID          int64
	Name        string
	Type        string
	MAC         string
	AssetNumber int64
	Status      int
	ExitDate    *string
	Reason      string
	ReturnDate  *string
}

// Printer は管理対象のプリンターを表す。
type Printer struct {
	ID          int64
	Name        string
	MAC         string
	AssetNumber int64
	Status      int
	ExitDate    *string
	Reason      *string
	ReturnDate  *string
}
