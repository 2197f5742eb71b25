package display

import "github.com/d2r2/go-hd44780"

type ScreenConfig struct {
	Enabled     bool
	LcdType     hd44780.LcdType
	Bus         int
	Address     uint8
	UpdateRate  int
	ExitMessage [4]string
}

func (s *ScreenConfig) HaveExitMessage() bool {
	for _, v := range s.ExitMessage {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// Width returns number of characters in a single line of configured LCD.
func (s *ScreenConfig) Width() int {
	switch s.LcdType {
	case hd44780.LCD_16x2:
		return 16
	default:
		return 20
	}
}

// Height returns number of lines of configured LCD.
func (s *ScreenConfig) Height() int {
	switch s.LcdType {
	case hd44780.LCD_16x2:
		return 2
	default:
		return 4
	}
}
