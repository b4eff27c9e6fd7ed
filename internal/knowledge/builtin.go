package knowledge

import (
	"github.com/medguard-inference-server/internal/domain"
)

// BuiltinVersion identifies the compiled-in catalog.
const BuiltinVersion = "builtin-2024.1"

// Builtin returns a fresh copy of the compiled-in catalog: six condition
// profiles and the twenty-entry symptom catalog.
func Builtin() *domain.Catalog {
	return &domain.Catalog{
		Version:    BuiltinVersion,
		Conditions: builtinConditions(),
		Symptoms:   builtinSymptoms(),
	}
}

// Default builds a knowledge base from the compiled-in catalog. It panics if
// the compiled-in data fails the integrity check, which the package tests
// rule out.
func Default() *Base {
	base, err := New(Builtin())
	if err != nil {
		panic(err)
	}
	return base
}

func builtinConditions() []domain.ConditionProfile {
	return []domain.ConditionProfile{
		{
			Key:              "malaria",
			DisplayName:      "Malaria",
			Description:      "A parasitic infection transmitted by infected mosquitoes",
			SeverityTier:     domain.SeverityHigh,
			PriorProbability: 0.15,
			KeySymptoms:      []string{"fever", "chills", "headache", "muscle_aches", "fatigue", "nausea", "vomiting"},
			SymptomLikelihoods: map[string]float64{
				"fever":        0.95,
				"chills":       0.85,
				"headache":     0.80,
				"muscle_aches": 0.75,
				"fatigue":      0.85,
				"nausea":       0.70,
				"vomiting":     0.60,
				"sweating":     0.65,
				"confusion":    0.40,
				"rapid_heart":  0.45,
			},
			RecommendedActions: []string{
				"Seek immediate medical attention",
				"Blood test for malaria parasites",
				"Start antimalarial treatment if confirmed",
				"Monitor for complications",
			},
		},
		{
			Key:              "typhoid",
			DisplayName:      "Typhoid Fever",
			Description:      "A bacterial infection caused by Salmonella typhi",
			SeverityTier:     domain.SeverityHigh,
			PriorProbability: 0.12,
			KeySymptoms:      []string{"fever", "headache", "abdominal_pain", "diarrhea", "loss_appetite", "fatigue"},
			SymptomLikelihoods: map[string]float64{
				"fever":          0.90,
				"headache":       0.85,
				"abdominal_pain": 0.80,
				"diarrhea":       0.75,
				"loss_appetite":  0.85,
				"fatigue":        0.80,
				"nausea":         0.70,
				"vomiting":       0.55,
				"chills":         0.50,
				"weight_loss":    0.60,
			},
			RecommendedActions: []string{
				"Immediate medical consultation required",
				"Blood culture and Widal test",
				"Start appropriate antibiotic treatment",
				"Maintain hydration and rest",
			},
		},
		{
			Key:              "flu",
			DisplayName:      "Influenza (Flu)",
			Description:      "A viral respiratory infection",
			SeverityTier:     domain.SeverityMedium,
			PriorProbability: 0.25,
			KeySymptoms:      []string{"fever", "cough", "headache", "muscle_aches", "fatigue", "runny_nose"},
			SymptomLikelihoods: map[string]float64{
				"fever":            0.85,
				"cough":            0.90,
				"headache":         0.80,
				"muscle_aches":     0.85,
				"fatigue":          0.90,
				"runny_nose":       0.70,
				"chills":           0.60,
				"nausea":           0.30,
				"chest_pain":       0.25,
				"shortness_breath": 0.15,
			},
			RecommendedActions: []string{
				"Rest and increase fluid intake",
				"Over-the-counter pain relievers",
				"Monitor symptoms for worsening",
				"Seek medical care if symptoms persist",
			},
		},
		{
			Key:              "pneumonia",
			DisplayName:      "Pneumonia",
			Description:      "Infection that inflames air sacs in lungs",
			SeverityTier:     domain.SeverityHigh,
			PriorProbability: 0.08,
			KeySymptoms:      []string{"cough", "fever", "chest_pain", "shortness_breath", "fatigue"},
			SymptomLikelihoods: map[string]float64{
				"cough":            0.95,
				"fever":            0.85,
				"chest_pain":       0.80,
				"shortness_breath": 0.90,
				"fatigue":          0.75,
				"chills":           0.70,
				"headache":         0.45,
				"muscle_aches":     0.50,
				"nausea":           0.30,
			},
			RecommendedActions: []string{
				"Immediate medical attention required",
				"Chest X-ray and blood tests",
				"Antibiotic or antiviral treatment",
				"Hospitalization may be necessary",
			},
		},
		{
			Key:              "food_poisoning",
			DisplayName:      "Food Poisoning",
			Description:      "Illness caused by consuming contaminated food",
			SeverityTier:     domain.SeverityMedium,
			PriorProbability: 0.18,
			KeySymptoms:      []string{"nausea", "vomiting", "diarrhea", "abdominal_pain", "fever"},
			SymptomLikelihoods: map[string]float64{
				"nausea":         0.95,
				"vomiting":       0.90,
				"diarrhea":       0.85,
				"abdominal_pain": 0.90,
				"fever":          0.60,
				"fatigue":        0.70,
				"headache":       0.40,
				"chills":         0.35,
				"muscle_aches":   0.30,
			},
			RecommendedActions: []string{
				"Stay hydrated with clear fluids",
				"Rest and avoid solid foods initially",
				"Seek medical care if severe symptoms",
				"Monitor for signs of dehydration",
			},
		},
		{
			Key:              "common_cold",
			DisplayName:      "Common Cold",
			Description:      "Viral infection of the upper respiratory tract",
			SeverityTier:     domain.SeverityLow,
			PriorProbability: 0.35,
			KeySymptoms:      []string{"runny_nose", "cough", "headache", "fatigue"},
			SymptomLikelihoods: map[string]float64{
				"runny_nose":   0.95,
				"cough":        0.70,
				"headache":     0.60,
				"fatigue":      0.65,
				"muscle_aches": 0.40,
				"fever":        0.25,
				"chest_pain":   0.15,
				"nausea":       0.10,
			},
			RecommendedActions: []string{
				"Rest and stay hydrated",
				"Use saline nasal drops",
				"Over-the-counter symptom relief",
				"Usually resolves in 7-10 days",
			},
		},
	}
}

func builtinSymptoms() []domain.SymptomCatalogEntry {
	entry := func(id, name string, category domain.SymptomCategory, weight int, conditions ...string) domain.SymptomCatalogEntry {
		return domain.SymptomCatalogEntry{
			ID:                   id,
			DisplayName:          name,
			Category:             category,
			SeverityWeight:       weight,
			AssociatedConditions: conditions,
		}
	}

	return []domain.SymptomCatalogEntry{
		entry("fever", "Fever", domain.CategoryGeneral, 3, "malaria", "typhoid", "flu"),
		entry("fatigue", "Fatigue/Weakness", domain.CategoryGeneral, 2, "malaria", "typhoid", "flu", "anemia"),
		entry("chills", "Chills", domain.CategoryGeneral, 3, "malaria", "typhoid"),
		entry("sweating", "Excessive Sweating", domain.CategoryGeneral, 2, "malaria", "tuberculosis"),
		entry("weight_loss", "Unexplained Weight Loss", domain.CategoryGeneral, 3, "tuberculosis", "diabetes"),

		entry("cough", "Cough", domain.CategoryRespiratory, 2, "flu", "tuberculosis", "pneumonia"),
		entry("shortness_breath", "Shortness of Breath", domain.CategoryRespiratory, 3, "pneumonia", "asthma"),
		entry("chest_pain", "Chest Pain", domain.CategoryRespiratory, 3, "pneumonia", "heart_disease"),
		entry("runny_nose", "Runny/Stuffy Nose", domain.CategoryRespiratory, 1, "flu", "common_cold"),

		entry("nausea", "Nausea", domain.CategoryGastrointestinal, 2, "malaria", "typhoid", "food_poisoning"),
		entry("vomiting", "Vomiting", domain.CategoryGastrointestinal, 3, "malaria", "typhoid", "food_poisoning"),
		entry("diarrhea", "Diarrhea", domain.CategoryGastrointestinal, 2, "typhoid", "food_poisoning"),
		entry("abdominal_pain", "Abdominal Pain", domain.CategoryGastrointestinal, 2, "typhoid", "appendicitis"),
		entry("loss_appetite", "Loss of Appetite", domain.CategoryGastrointestinal, 2, "typhoid", "hepatitis"),

		entry("headache", "Headache", domain.CategoryNeurological, 2, "malaria", "typhoid", "flu", "migraine"),
		entry("confusion", "Confusion/Disorientation", domain.CategoryNeurological, 3, "malaria", "meningitis"),
		entry("seizures", "Seizures", domain.CategoryNeurological, 4, "malaria", "epilepsy"),
		entry("muscle_aches", "Muscle Aches", domain.CategoryNeurological, 2, "flu", "dengue"),

		entry("rapid_heart", "Rapid Heart Rate", domain.CategoryCardiovascular, 3, "malaria", "heart_disease"),
		entry("low_blood_pressure", "Low Blood Pressure", domain.CategoryCardiovascular, 3, "sepsis", "dehydration"),
	}
}
