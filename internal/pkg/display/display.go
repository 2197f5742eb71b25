package display

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	device "github.com/d2r2/go-hd44780"
	"github.com/d2r2/go-i2c"
	shittyLogger "github.com/d2r2/go-logger"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
)

var log = logger.GetLogger()

const (
	KeyIdle        = '▯'
	KeyHeld        = '█'
	KeyHighlighted = '░'
)

func getDisplay(addr uint8, bus int, lcdType device.LcdType) (*device.Lcd, *i2c.I2C, error) {
	shittyLogger.ChangePackageLogLevel("i2c", shittyLogger.InfoLevel)
	shittyLogger.ChangePackageLogLevel("hd44780", shittyLogger.InfoLevel)

	lcdRaw, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, nil, err
	}

	lcd, err := device.NewLcd(lcdRaw, lcdType)
	if err != nil {
		return nil, lcdRaw, err
	}

	return lcd, lcdRaw, nil
}

func loadCustomCharacters(lcd *device.Lcd, characters [][]byte) {
	for i, char := range characters {
		var location = uint8(i) & 0x7

		lcd.Command(device.CMD_CGRAM_Set | (location << 3))
		lcd.Write(char)
	}
}

var keyChars = [][]byte{
	{0x1F, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x1F}, // "▯"
	{0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F}, // "█"
	{0x1F, 0x15, 0x1B, 0x15, 0x1B, 0x15, 0x1B, 0x1F}, // "░"
}

var exitChars = [][]byte{
	{0x00, 0x00, 0x0A, 0x1F, 0x1F, 0x0E, 0x04, 0x00}, // "❤"
	{0x06, 0x0C, 0x1B, 0x13, 0x10, 0x00, 0x00, 0x00},
}

var conversionMap = map[rune]byte{
	KeyIdle:        0,
	KeyHeld:        1,
	KeyHighlighted: 2,
}

var exitConversionMap = map[rune]byte{
	'❤': 0,
}

func replaceCharsForDisplay(s string, conversion map[rune]byte) string {
	var ns strings.Builder
	for _, r := range s {
		n, ok := conversion[r]
		if ok {
			ns.WriteByte(n)
		} else {
			ns.WriteRune(r)
		}
	}
	return ns.String()
}

// KeyRow renders one character per note: held keys are filled, highlighted ones are hatched.
func KeyRow(notes []note.Note, held func(note.Note) bool, highlighted note.Note) string {
	var row strings.Builder
	for _, n := range notes {
		switch {
		case held(n):
			row.WriteRune(KeyHeld)
		case n == highlighted:
			row.WriteRune(KeyHighlighted)
		default:
			row.WriteRune(KeyIdle)
		}
	}
	return row.String()
}

// Fit cuts or pads given text to exactly width characters.
func Fit(s string, width int) string {
	count := utf8.RuneCountInString(s)
	if count > width {
		return string([]rune(s)[:width])
	}
	return s + strings.Repeat(" ", width-count)
}

type DisplayData struct {
	Lines   [4]string
	LastMsg bool // inform LCD about loading exit message to load different custom character set
}

func HandleDisplay(wg *sync.WaitGroup, cfg ScreenConfig, dd <-chan DisplayData) {
	defer wg.Done()
	lcd, bus, err := getDisplay(cfg.Address, cfg.Bus, cfg.LcdType)
	if err != nil {
		log.Info(fmt.Sprintf("LCD initialization failed: %v", err), logger.Warning)
		if bus != nil {
			bus.Close()
		}
		for range dd {
		}
		return
	}

	loadCustomCharacters(lcd, keyChars)

	lcd.BacklightOn()
	lcd.Clear()

	for data := range dd {
		conversion := conversionMap
		if data.LastMsg {
			loadCustomCharacters(lcd, exitChars)
			lcd.Clear()
			conversion = exitConversionMap
		}
		for i, s := range data.Lines[:cfg.Height()] {
			fixed := replaceCharsForDisplay(Fit(s, cfg.Width()), conversion)
			lcd.SetPosition(i, 0)
			lcd.Write([]byte(fixed))
		}
	}

	bus.Close()
	log.Info("display closed", logger.Debug)
}
