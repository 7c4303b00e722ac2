package service

import (
	"math"
	"sort"

	"github.com/TIANLI0/LeafScan/model"
)

// GroupDiseaseCards 按标签聚合病害预测，每个标签一张卡片。
// 卡片保留最高置信度和第一次出现时的建议，按置信度降序排列。
func GroupDiseaseCards(preds []model.Prediction) []model.DiseaseCard {
	index := make(map[string]int)
	cards := make([]model.DiseaseCard, 0)

	for _, p := range preds {
		if !p.IsDisease {
			continue
		}

		conf := p.Confidence
		if math.IsNaN(conf) {
			conf = 0
		}

		i, ok := index[p.Label]
		if !ok {
			index[p.Label] = len(cards)
			cards = append(cards, model.DiseaseCard{
				Label:         p.Label,
				MaxConfidence: conf,
				Advice:        p.Advice,
			})
			continue
		}

		cards[i].MaxConfidence = math.Max(cards[i].MaxConfidence, conf)
	}

	sort.SliceStable(cards, func(a, b int) bool {
		return cards[a].MaxConfidence > cards[b].MaxConfidence
	})

	return cards
}
