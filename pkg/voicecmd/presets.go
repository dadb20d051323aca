package voicecmd

import "github.com/teslashibe/go-g1audio/pkg/audio"

var presetsChinese = [3]string{
	"收到主人，小优这就前往冰箱寻找牛奶",
	"收到主人，小优这就前往冰箱寻找果汁",
	"收到主人，小优这就前往冰箱寻找汽水",
}

var presetsEnglish = [3]string{
	"Got it, master. Heading to the fridge to find some milk.",
	"Got it, master. Heading to the fridge to find some juice.",
	"Got it, master. Heading to the fridge to find some soda.",
}

var presetsJapanese = [3]string{
	"承知いたしました、主人様。冷蔵庫へ行って牛乳を探します",
	"承知いたしました、主人様。冷蔵庫へ行ってジュースを探します",
	"承知いたしました、主人様。冷蔵庫へ行って炭酸飲料を探します",
}

// Preset returns the reply for option in lang. Unknown languages use the
// Chinese table. ok is false for OptionNone or an out-of-range option.
func Preset(option Option, lang audio.Language) (reply string, ok bool) {
	if !option.Valid() {
		return "", false
	}

	table := presetsChinese
	switch lang {
	case audio.LanguageEnglish:
		table = presetsEnglish
	case audio.LanguageJapanese:
		table = presetsJapanese
	}

	return table[option-1], true
}
